package sqlinline

// Provider credentials live in integration_tokens, one row per provider.

const QSelectProviderToken = `--sql 2bf1fee5-3fab-4be1-a8ef-cb4e6738dc14
select token
from integration_tokens
where provider = $1::text;
`

const QListProviderTokens = `--sql 4c39f999-6564-446c-889e-59d73b779a3b
select provider, properties, updated_at
from integration_tokens
order by provider;
`

const QSaveProviderToken = `--sql 78ac9741-ecd8-4235-b891-25d221285c5f
insert into integration_tokens (id, provider, token, properties)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update
set token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
