package sqlinline

const QEnsureIntegrationTokensSchema = `--sql 8a0c2f7e-5b6d-4f3a-9e1c-2d7b4a6f8c90
create table if not exists integration_tokens (
    provider    text primary key,
    token       text not null,
    properties  jsonb not null default '{}'::jsonb,
    updated_at  timestamptz not null default now()
);
`

const QSelectIntegrationToken = `--sql 5c3e9a1b-7d2f-4e8a-b6c4-1f0e9d8a7b65
select token
from integration_tokens
where provider = $1;
`

const QUpsertIntegrationToken = `--sql e4b7d2a9-3c1f-4a6e-8d5b-9f2c7e1a0b34
insert into integration_tokens (provider, token, properties, updated_at)
values ($1, $2, $3, now())
on conflict (provider) do update
set token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
