package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Versioned DDL steps. Each applies once, in its own transaction, recorded
// in schema_migrations so restarts are idempotent.
var schemaSteps = []struct {
	version string
	ddl     string
}{
	{
		version: "0001_settings",
		ddl: `
			CREATE TABLE IF NOT EXISTS settings (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				title VARCHAR(256) NOT NULL,
				logo TEXT NOT NULL DEFAULT '',
				copyright VARCHAR(256) NOT NULL DEFAULT '',
				search_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				theme VARCHAR(50) NOT NULL DEFAULT 'theme-blue',
				appearance_mode VARCHAR(50) NOT NULL DEFAULT 'galaxy'
			)
		`,
	},
	{
		version: "0002_categories_links",
		ddl: `
			CREATE TABLE IF NOT EXISTS categories (
				id VARCHAR(128) PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				sort_order INTEGER NOT NULL DEFAULT 0,
				is_collapsed BOOLEAN NOT NULL DEFAULT FALSE
			);
			CREATE TABLE IF NOT EXISTS links (
				id VARCHAR(128) PRIMARY KEY,
				name VARCHAR(256) NOT NULL,
				url TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				logo_url TEXT NOT NULL DEFAULT '',
				sort_order INTEGER NOT NULL DEFAULT 0,
				category_id VARCHAR(128) NOT NULL REFERENCES categories(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_links_category ON links(category_id, sort_order)
		`,
	},
	{
		version: "0003_admin_sessions",
		ddl: `
			CREATE TABLE IF NOT EXISTS admin_sessions (
				token_hash TEXT PRIMARY KEY,
				expires_at TIMESTAMPTZ NOT NULL,
				revoked_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`,
	},
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}

	for _, step := range schemaSteps {
		if migrated, err := isMigrated(ctx, db, step.version); err != nil {
			return err
		} else if migrated {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", step.version, err)
		}

		if _, err := tx.ExecContext(ctx, step.ddl); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", step.version, err)
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, step.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", step.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", step.version, err)
		}
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func isMigrated(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return exists, nil
}
