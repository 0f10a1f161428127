package sqlinline

// RunColumns is the column order every run query returns.
const RunColumns = "id, topic, requested_seconds, segment_count, clip_seconds, status, progress, stage, message, suggestion, final_key, segments_merged, image_path, audio_path, work_dir, locale, country, request_id, created_at, updated_at"

const QInsertRun = `--sql 71867315-bed1-4332-9398-9d300a45a9fa
insert into runs (
    id, topic, requested_seconds, segment_count, clip_seconds, status,
    image_path, audio_path, work_dir, locale, country, request_id
)
values ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
returning created_at, updated_at;
`

const QSelectRun = `--sql cc185d63-58c0-4704-ba5d-2bacaa2dd712
select id, topic, requested_seconds, segment_count, clip_seconds, status, progress, stage, message, suggestion, final_key, segments_merged, image_path, audio_path, work_dir, locale, country, request_id, created_at, updated_at
from runs
where id = $1::uuid;
`

const QListRecentRuns = `--sql 3fb7a359-5245-481b-afe0-fb021e73cc45
select id, topic, requested_seconds, segment_count, clip_seconds, status, progress, stage, message, suggestion, final_key, segments_merged, image_path, audio_path, work_dir, locale, country, request_id, created_at, updated_at
from runs
order by created_at desc
limit $1;
`

const QUpdateRunProgress = `--sql 88194ef1-e68f-467d-9337-ca7fd9701d53
update runs
set progress = greatest(progress, $2), stage = $3, updated_at = now()
where id = $1::uuid;
`

const QFinishRun = `--sql 2e5f7ab9-8aff-4e23-93dd-6f1e6aa1364b
update runs
set status = $2,
    progress = $3,
    stage = $4,
    message = $5,
    suggestion = $6,
    final_key = coalesce(nullif($7, ''), final_key),
    segments_merged = $8,
    updated_at = now()
where id = $1::uuid;
`

const QDeleteRun = `--sql e24791c0-0f85-4d8c-a587-6f39f7072366
delete from runs
where id = $1::uuid;
`

const QListExpiredRuns = `--sql 622e5f12-23a1-4c3c-9f06-2095372acddb
select id, topic, requested_seconds, segment_count, clip_seconds, status, progress, stage, message, suggestion, final_key, segments_merged, image_path, audio_path, work_dir, locale, country, request_id, created_at, updated_at
from runs
where status in ('completed', 'partial', 'failed')
  and updated_at < now() - make_interval(hours => $1)
order by updated_at asc;
`
