package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the application store DDL. Statements are idempotent and
// run in order inside a single transaction on startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (lower(email))`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         TEXT PRIMARY KEY,
		token      TEXT NOT NULL UNIQUE,
		user_id    TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		revoked_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,

	`CREATE TABLE IF NOT EXISTS collectors (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		query       TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS collector_items (
		collector_id TEXT NOT NULL REFERENCES collectors (id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		PRIMARY KEY (collector_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS schedules (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		cron_spec  TEXT NOT NULL,
		enabled    BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS indicators (
		id                   TEXT PRIMARY KEY,
		name                 TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		owner_id             TEXT NOT NULL DEFAULT '',
		collector_id         TEXT NOT NULL REFERENCES collectors (id),
		item_name            TEXT NOT NULL,
		threshold_field      TEXT NOT NULL,
		threshold_comparison TEXT NOT NULL,
		threshold_value      DOUBLE PRECISION NOT NULL,
		schedule_id          TEXT NOT NULL REFERENCES schedules (id),
		active               BOOLEAN NOT NULL DEFAULT true,
		is_running           BOOLEAN NOT NULL DEFAULT false,
		last_run_at          TIMESTAMPTZ,
		last_run_value       DOUBLE PRECISION,
		last_run_result      TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_indicators_due
		ON indicators (last_run_at ASC NULLS FIRST)
		WHERE active AND NOT is_running`,

	`CREATE TABLE IF NOT EXISTS indicator_contacts (
		indicator_id TEXT NOT NULL REFERENCES indicators (id) ON DELETE CASCADE,
		contact_id   TEXT NOT NULL REFERENCES contacts (id) ON DELETE CASCADE,
		PRIMARY KEY (indicator_id, contact_id)
	)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id              TEXT PRIMARY KEY,
		indicator_id    TEXT NOT NULL,
		indicator_name  TEXT NOT NULL,
		severity        TEXT NOT NULL,
		message         TEXT NOT NULL,
		triggered_value DOUBLE PRECISION NOT NULL,
		threshold_field TEXT NOT NULL,
		threshold_value DOUBLE PRECISION NOT NULL,
		resolved        BOOLEAN NOT NULL DEFAULT false,
		resolved_by     TEXT,
		resolved_at     TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_indicator ON alerts (indicator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_unresolved ON alerts (created_at DESC) WHERE NOT resolved`,
}

// Migrate applies the schema to the application store.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}
