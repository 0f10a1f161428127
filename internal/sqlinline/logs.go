package sqlinline

const QInsertRunLog = `--sql 5cbedf55-4b13-45c9-8de0-f9ac21364bb7
insert into run_logs (run_id, level, message, created_at)
values ($1::uuid, $2, $3, $4)
returning seq;
`

const QListRunLogs = `--sql 837a36e0-9837-4db4-b2cb-a1c7d8b894fa
select run_id, seq, level, message, created_at
from run_logs
where run_id = $1::uuid
order by seq asc;
`
