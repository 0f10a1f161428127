package sqlinline

const QUpsertRunArtifact = `--sql 063b8a16-7266-409e-8cbc-bd4a7c0ee8ec
insert into run_artifacts (run_id, kind, storage_key, backend, mime, bytes, created_at)
values ($1::uuid, $2, $3, $4, $5, $6, now())
on conflict (run_id, kind) do update set
    storage_key = excluded.storage_key,
    backend = excluded.backend,
    mime = excluded.mime,
    bytes = excluded.bytes,
    created_at = now()
returning created_at;
`

const QListRunArtifacts = `--sql 8631c42d-de17-44a3-b9aa-f5fdaa4992e7
select run_id, kind, storage_key, backend, mime, bytes, created_at
from run_artifacts
where run_id = $1::uuid
order by created_at asc, kind asc;
`
