package search

import (
	"context"
	"database/sql"
	"fmt"
)

// PgLinks is the always-available fallback searcher, matching links by
// substring against name, description, url, and category name.
type PgLinks struct {
	db *sql.DB
}

func NewPgLinks(db *sql.DB) *PgLinks {
	return &PgLinks{db: db}
}

func (p *PgLinks) Healthy() bool {
	return p.db.Ping() == nil
}

func (p *PgLinks) Search(q Query) ([]LinkRecord, int, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.db.Query(`
		SELECT l.id, l.name, l.url, l.description, l.logo_url, l.category_id, c.name
		FROM links l
		JOIN categories c ON c.id = l.category_id
		WHERE ($1='' OR c.id=$1)
		  AND ($2='' OR l.name ILIKE '%' || $2 || '%'
		       OR l.description ILIKE '%' || $2 || '%'
		       OR l.url ILIKE '%' || $2 || '%'
		       OR c.name ILIKE '%' || $2 || '%')
		ORDER BY c.sort_order ASC, l.sort_order ASC
		LIMIT $3
	`, q.CategoryID, q.Text, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("search links: %w", err)
	}
	defer rows.Close()

	results := make([]LinkRecord, 0)
	for rows.Next() {
		var record LinkRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.URL, &record.Description, &record.LogoURL, &record.CategoryID, &record.CategoryName); err != nil {
			return nil, 0, fmt.Errorf("scan link record: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate link records: %w", err)
	}
	return results, len(results), nil
}

// LoadAllRecords reads the full tree for index rebuilds.
func (p *PgLinks) LoadAllRecords(ctx context.Context) ([]LinkRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT l.id, l.name, l.url, l.description, l.logo_url, l.category_id, c.name
		FROM links l
		JOIN categories c ON c.id = l.category_id
		ORDER BY c.sort_order ASC, l.sort_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load link records: %w", err)
	}
	defer rows.Close()

	records := make([]LinkRecord, 0)
	for rows.Next() {
		var record LinkRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.URL, &record.Description, &record.LogoURL, &record.CategoryID, &record.CategoryName); err != nil {
			return nil, fmt.Errorf("scan link record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link records: %w", err)
	}
	return records, nil
}
