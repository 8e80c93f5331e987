// Package search answers link queries for the public search box.
// Meilisearch serves queries when configured and healthy; a Postgres
// fallback always works, so search never depends on the optional backend.
package search

// LinkRecord is the indexed shape of one link.
type LinkRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Description  string `json:"description"`
	LogoURL      string `json:"logoUrl,omitempty"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}

// Query describes a search request.
type Query struct {
	Text       string
	CategoryID string // empty = all categories
	Limit      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []LinkRecord `json:"results"`
	Total   int          `json:"total"`
	Query   string       `json:"query"`
}

// Searcher can execute a link search.
type Searcher interface {
	Search(q Query) ([]LinkRecord, int, error)
	Healthy() bool
}
