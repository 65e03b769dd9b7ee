package sqlinline

// Postgres statements for the visitor session cache.

const QCreateSessionsPG = `--sql 9f9058ab-4140-42a3-80ff-f320f974b875
create table if not exists visitor_sessions (
    visitor_id  text primary key,
    token       text not null,
    user_email  text not null default '',
    user_name   text not null default '',
    profile     jsonb,
    is_admin    boolean not null default false,
    updated_at  timestamptz not null default now()
);
create index if not exists visitor_sessions_updated_at_idx on visitor_sessions (updated_at);
`

const QLoadSessionPG = `--sql e73f9d76-e069-468d-bc65-2a1fb2b97668
select visitor_id, token, user_email, user_name, profile, is_admin, updated_at
from visitor_sessions
where visitor_id = $1;
`

const QUpsertSessionPG = `--sql efaf8c05-c5d7-4526-a256-8678c3ec5638
insert into visitor_sessions (visitor_id, token, user_email, user_name, profile, is_admin, updated_at)
values ($1, $2, $3, $4, $5::jsonb, $6, $7)
on conflict (visitor_id) do update set
    token = excluded.token,
    user_email = excluded.user_email,
    user_name = excluded.user_name,
    profile = excluded.profile,
    is_admin = excluded.is_admin,
    updated_at = excluded.updated_at;
`

const QDeleteSessionPG = `--sql cca28c57-ebe5-4696-806e-43aa0c5ff735
delete from visitor_sessions where visitor_id = $1;
`

const QSweepSessionsPG = `--sql 22a92f48-e73d-4bff-94be-b52d13d317b2
delete from visitor_sessions where updated_at < $1;
`

// SQLite statements. Timestamps are unix seconds.

const QCreateSessionsSQLite = `--sql e87fa72a-7fd5-4329-9beb-c0431c18c7e7
create table if not exists visitor_sessions (
    visitor_id  text primary key,
    token       text not null,
    user_email  text not null default '',
    user_name   text not null default '',
    profile     text,
    is_admin    integer not null default 0,
    updated_at  integer not null
);
`

const QLoadSessionSQLite = `--sql f4950efd-2a42-4ad2-8460-6b17c86ad6bd
select visitor_id, token, user_email, user_name, profile, is_admin, updated_at
from visitor_sessions
where visitor_id = ?;
`

const QUpsertSessionSQLite = `--sql bc66c02d-0f0d-41c9-b10d-59663bb26a2f
insert into visitor_sessions (visitor_id, token, user_email, user_name, profile, is_admin, updated_at)
values (?, ?, ?, ?, ?, ?, ?)
on conflict (visitor_id) do update set
    token = excluded.token,
    user_email = excluded.user_email,
    user_name = excluded.user_name,
    profile = excluded.profile,
    is_admin = excluded.is_admin,
    updated_at = excluded.updated_at;
`

const QDeleteSessionSQLite = `--sql 18153ed3-88a5-4395-9387-0a82a55cffaa
delete from visitor_sessions where visitor_id = ?;
`

const QSweepSessionsSQLite = `--sql 2a22b576-2c50-4093-8ebb-5bc580c85fed
delete from visitor_sessions where updated_at < ?;
`
