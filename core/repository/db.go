package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection pool
type DB struct {
	*sql.DB
}

// NewDB opens and pings a Postgres database
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{DB: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	run_id         TEXT NOT NULL DEFAULT '',
	leases         INTEGER NOT NULL DEFAULT 0,
	last_epoch     INTEGER,
	latest_metrics JSONB,
	started_at     TIMESTAMPTZ,
	halted_at      TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS job_events (
	id          UUID PRIMARY KEY,
	job_id      TEXT NOT NULL REFERENCES jobs (id),
	run_id      TEXT NOT NULL DEFAULT '',
	at          TIMESTAMPTZ NOT NULL,
	from_status TEXT,
	to_status   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	meta_json   JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS job_events_job_id_at ON job_events (job_id, at DESC);
`

// EnsureSchema creates the jobs and job_events tables if they are missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
