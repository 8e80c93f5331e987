// Package store persists the settings singleton and the category tree.
// Both records are replaced whole on every save; partial trees are never
// merged with existing state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"waypost/internal/directory"
	"waypost/internal/ordering"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// GetSettings never fails with "not found": an absent row yields the
// defaults the site ships with.
func (s *PostgresStore) GetSettings(ctx context.Context) (directory.Settings, error) {
	var settings directory.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT title, logo, copyright, search_enabled, theme, appearance_mode
		FROM settings
		WHERE id=1
	`).Scan(
		&settings.Title,
		&settings.Logo,
		&settings.Copyright,
		&settings.SearchEnabled,
		&settings.Theme,
		&settings.AppearanceMode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.DefaultSettings(), nil
	}
	if err != nil {
		return directory.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// GetCategories returns the full tree. Rows are requested ordered, and the
// result is normalized again because persisted order is not trusted:
// partially-migrated or externally-edited data may carry gaps or
// duplicates.
func (s *PostgresStore) GetCategories(ctx context.Context) ([]directory.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sort_order, is_collapsed
		FROM categories
		ORDER BY sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]directory.Category, 0)
	index := make(map[string]int)
	for rows.Next() {
		var category directory.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.SortOrder, &category.IsCollapsed); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		category.Links = []directory.Link{}
		index[category.ID] = len(categories)
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	linkRows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, description, logo_url, sort_order, category_id
		FROM links
		ORDER BY category_id ASC, sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var link directory.Link
		if err := linkRows.Scan(&link.ID, &link.Name, &link.URL, &link.Description, &link.LogoURL, &link.SortOrder, &link.CategoryID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		if i, ok := index[link.CategoryID]; ok {
			categories[i].Links = append(categories[i].Links, link)
		}
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}

	categories = ordering.Normalize(categories)
	for i := range categories {
		categories[i].Links = ordering.Normalize(categories[i].Links)
	}
	return categories, nil
}

// ReplaceSettings overwrites the singleton whole. There is no partial
// patch; the admin console always submits the complete object.
func (s *PostgresStore) ReplaceSettings(ctx context.Context, settings directory.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, title, logo, copyright, search_enabled, theme, appearance_mode)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			logo=EXCLUDED.logo,
			copyright=EXCLUDED.copyright,
			search_enabled=EXCLUDED.search_enabled,
			theme=EXCLUDED.theme,
			appearance_mode=EXCLUDED.appearance_mode
	`, settings.Title, settings.Logo, settings.Copyright, settings.SearchEnabled, settings.Theme, settings.AppearanceMode)
	if err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// ReplaceCategories replaces the entire tree in one transaction. The caller
// submits the complete desired state; whatever was stored before is gone
// after commit, links included.
func (s *PostgresStore) ReplaceCategories(ctx context.Context, categories []directory.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace categories: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	if err := insertTree(ctx, tx, categories); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace categories: %w", err)
	}
	return nil
}

// ImportSnapshot replaces stored state from a snapshot in a single
// transaction: either all of it lands or the prior state survives intact.
// Only records present in the snapshot are touched; a settings-only body
// leaves the category tree alone, and vice versa. A present-but-empty
// categories collection is an explicit wipe.
func (s *PostgresStore) ImportSnapshot(ctx context.Context, snapshot directory.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if snapshot.Settings != nil {
		settings := *snapshot.Settings
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
			return fmt.Errorf("clear settings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (id, title, logo, copyright, search_enabled, theme, appearance_mode)
			VALUES (1, $1, $2, $3, $4, $5, $6)
		`, settings.Title, settings.Logo, settings.Copyright, settings.SearchEnabled, settings.Theme, settings.AppearanceMode); err != nil {
			return fmt.Errorf("import settings: %w", err)
		}
	}

	if snapshot.Categories != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM links`); err != nil {
			return fmt.Errorf("clear links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}

		// Imported order is positional: whatever sortOrder values the
		// snapshot carried are reindexed from the sequence itself.
		categories := ordering.Reindex(ordering.Normalize(snapshot.Categories))
		for i := range categories {
			categories[i].Links = ordering.Reindex(ordering.Normalize(categories[i].Links))
		}
		if err := insertTree(ctx, tx, categories); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// ExportSnapshot assembles a complete serialized copy of the current state.
func (s *PostgresStore) ExportSnapshot(ctx context.Context) (directory.Snapshot, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return directory.Snapshot{}, err
	}
	categories, err := s.GetCategories(ctx)
	if err != nil {
		return directory.Snapshot{}, err
	}
	return directory.Snapshot{
		Version:    directory.SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Settings:   &settings,
		Categories: categories,
	}, nil
}

func insertTree(ctx context.Context, tx *sql.Tx, categories []directory.Category) error {
	for _, category := range categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, sort_order, is_collapsed)
			VALUES ($1, $2, $3, $4)
		`, category.ID, category.Name, category.SortOrder, category.IsCollapsed); err != nil {
			return fmt.Errorf("insert category %s: %w", category.ID, err)
		}
		for _, link := range category.Links {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO links (id, name, url, description, logo_url, sort_order, category_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, link.ID, link.Name, link.URL, link.Description, link.LogoURL, link.SortOrder, category.ID); err != nil {
				return fmt.Errorf("insert link %s: %w", link.ID, err)
			}
		}
	}
	return nil
}

// SaveAdminSession registers an issued session artifact by token hash.
func (s *PostgresStore) SaveAdminSession(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (token_hash, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_hash) DO UPDATE SET expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// LookupAdminSession reports whether the artifact is live: registered,
// unrevoked, unexpired.
func (s *PostgresStore) LookupAdminSession(ctx context.Context, tokenHash string) (bool, error) {
	var live bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM admin_sessions
			WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
		)
	`, tokenHash).Scan(&live)
	if err != nil {
		return false, fmt.Errorf("lookup admin session: %w", err)
	}
	return live, nil
}

// RevokeAdminSession invalidates the artifact immediately (logout).
func (s *PostgresStore) RevokeAdminSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE admin_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke admin session: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
