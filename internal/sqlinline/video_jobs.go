package sqlinline

const QInsertVideoJob = `--sql d62a98bd-4a33-4dbd-80fe-1e1caf3e776b
insert into video_jobs (
    id, user_id, model_id, prompt, image_url, width, height, duration, motion,
    status, attempts, created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $11);
`

const QSelectVideoJob = `--sql 599fb5bb-b8d1-4c35-9884-525d33b1023a
select id::text, user_id, model_id, prompt, image_url, width, height, duration, motion,
       status, result, result_expires_at, claimed_at, attempts, created_at, updated_at
from video_jobs
where id = $1;
`

// $1 is the lease cutoff: claims at or before it are considered abandoned.
const QSelectClaimableVideoJobs = `--sql 4bc2a72d-1e76-4a6f-b581-7aace0918fdb
select id::text, user_id, model_id, prompt, image_url, width, height, duration, motion,
       status, result, result_expires_at, claimed_at, attempts, created_at, updated_at
from video_jobs
where status = 'queued'
  and (claimed_at is null or claimed_at <= $1)
order by created_at
limit $2;
`

const QClaimVideoJob = `--sql 3115c91b-7475-4959-ae15-e52db21bc65a
update video_jobs
set claimed_at = $2,
    attempts = attempts + 1,
    updated_at = $2
where id = $1
  and status = 'queued'
  and (claimed_at is null or claimed_at <= $3)
returning id::text, user_id, model_id, prompt, image_url, width, height, duration, motion,
          status, result, result_expires_at, claimed_at, attempts, created_at, updated_at;
`

const QRenewVideoJobClaim = `--sql 0c6f3d52-8e1b-4b9a-a7d4-5f2e91c3b8a6
update video_jobs
set claimed_at = $3,
    updated_at = $3
where id = $1
  and status = 'queued'
  and attempts = $2;
`

const QCompleteVideoJob = `--sql 7fe9252d-7af4-4824-b4bf-5ff98c348cbe
update video_jobs
set status = 'completed',
    result = $2,
    result_expires_at = $3,
    updated_at = $4
where id = $1
  and status = 'queued';
`

const QFailVideoJob = `--sql 101db854-3f6e-42e4-923d-378f5b1648cb
update video_jobs
set status = 'failed',
    updated_at = $2
where id = $1
  and status = 'queued';
`

const QFailExhaustedVideoJobs = `--sql 7df43ec7-6880-424b-8425-3995da0040e3
update video_jobs
set status = 'failed',
    updated_at = $1
where status = 'queued'
  and claimed_at is not null
  and claimed_at <= $2
  and attempts >= $3;
`
