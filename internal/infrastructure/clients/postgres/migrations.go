package postgres

import (
	"context"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_users",
		sql: `CREATE TABLE IF NOT EXISTS users (
	id              UUID PRIMARY KEY,
	email           TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	full_name       TEXT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	},
}

// Migrate applies pending schema migrations in a single transaction and
// returns the number applied.
func (c *Client) Migrate(ctx context.Context) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INT PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if exists {
			continue
		}

		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return applied, fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
		); err != nil {
			return applied, fmt.Errorf("record migration %d: %w", m.version, err)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit migrations: %w", err)
	}
	return applied, nil
}
