package sqlinline

// Schema statements run once at startup by the api; every statement is
// idempotent.
var Schema = []string{QCreateRuns, QCreateRunLogs, QCreateRunArtifacts, QCreateIntegrationTokens}

const QCreateRuns = `--sql f012734e-b497-45ad-99eb-1df56369de87
create table if not exists runs (
    id uuid primary key,
    topic text not null,
    requested_seconds int not null,
    segment_count int not null,
    clip_seconds int not null,
    status text not null default 'queued',
    progress int not null default 0,
    stage text not null default '',
    message text not null default '',
    suggestion text not null default '',
    final_key text not null default '',
    segments_merged int not null default 0,
    image_path text not null default '',
    audio_path text not null default '',
    work_dir text not null,
    locale text not null default '',
    country text not null default '',
    request_id text not null default '',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QCreateRunLogs = `--sql 94c8c242-d716-4fa5-93d3-826e0933213b
create table if not exists run_logs (
    run_id uuid not null references runs(id) on delete cascade,
    seq bigserial,
    level text not null,
    message text not null,
    created_at timestamptz not null default now(),
    primary key (run_id, seq)
);
`

const QCreateRunArtifacts = `--sql 12325b77-1bd1-4673-8926-8c2567ee8296
create table if not exists run_artifacts (
    run_id uuid not null references runs(id) on delete cascade,
    kind text not null,
    storage_key text not null,
    backend text not null,
    mime text not null default '',
    bytes bigint not null default 0,
    created_at timestamptz not null default now(),
    primary key (run_id, kind)
);
`

const QCreateIntegrationTokens = `--sql 4925d04a-f6a3-4378-8e02-c6aafe2e421a
create table if not exists integration_tokens (
    id uuid primary key,
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`
