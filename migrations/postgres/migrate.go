// Package pgmigrations holds the schema for the Postgres user store.
package pgmigrations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE SCHEMA IF NOT EXISTS auth;

CREATE TABLE IF NOT EXISTS auth.users (
    id             text PRIMARY KEY,
    name           text NOT NULL DEFAULT '',
    email          text NOT NULL DEFAULT '',
    email_verified boolean NOT NULL DEFAULT false,
    status         text NOT NULL DEFAULT 'active',
    roles          text[] NOT NULL DEFAULT '{}',
    text           text NOT NULL DEFAULT '',
    last_login     timestamptz,
    created_at     timestamptz NOT NULL DEFAULT now(),
    updated_at     timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS users_last_login_idx ON auth.users (COALESCE(last_login, created_at));
`

// Apply creates the auth schema and users table if missing. Statements are
// idempotent, so running it on every startup is safe.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
