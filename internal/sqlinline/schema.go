package sqlinline

const QEnsureVideoJobsSchema = `--sql 2ef4081c-a195-493c-905b-08e6eb546996
create table if not exists video_jobs (
    id                 uuid primary key,
    user_id            text not null default '',
    model_id           text not null,
    prompt             text not null default '',
    image_url          text not null,
    width              integer not null,
    height             integer not null,
    duration           integer not null,
    motion             text not null default '',
    status             text not null default 'queued',
    result             text,
    result_expires_at  timestamptz,
    claimed_at         timestamptz,
    attempts           integer not null default 0,
    created_at         timestamptz not null default now(),
    updated_at         timestamptz not null default now()
);
create index if not exists video_jobs_status_created_idx on video_jobs (status, created_at);
`
