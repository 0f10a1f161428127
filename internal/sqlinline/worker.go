package sqlinline

// QWorkerClaimRun moves the oldest queued run to running and returns it.
// Concurrent workers skip rows another transaction already locked.
const QWorkerClaimRun = `--sql da74d938-30be-47f8-8428-edd529b6d757
with next_run as (
    select id
    from runs
    where status = 'queued'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update runs
    set status = 'running', progress = greatest(progress, 25), stage = 'processing', updated_at = now()
    where id in (select id from next_run)
    returning id, topic, requested_seconds, segment_count, clip_seconds, status, progress, stage, message, suggestion, final_key, segments_merged, image_path, audio_path, work_dir, locale, country, request_id, created_at, updated_at
)
select * from updated;
`
