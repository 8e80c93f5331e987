// Package directory defines the persisted content model of the site: the
// settings singleton and the ordered tree of categories and links.
package directory

import "time"

// Settings is the site-wide singleton. Absence in the store is never an
// error; readers receive DefaultSettings instead.
type Settings struct {
	Title          string `json:"title"`
	Logo           string `json:"logo"`
	Copyright      string `json:"copyright"`
	SearchEnabled  bool   `json:"searchEnabled"`
	Theme          string `json:"theme"`
	AppearanceMode string `json:"appearanceMode"`
}

// DefaultSettings mirrors the values the site ships with before an
// administrator saves anything.
func DefaultSettings() Settings {
	return Settings{
		Title:          "英语全科启蒙导航",
		Logo:           "",
		Copyright:      "© 2025 英语全科启蒙",
		SearchEnabled:  true,
		Theme:          "theme-blue",
		AppearanceMode: "galaxy",
	}
}

// Category is a top-level section of the directory. Links have no existence
// outside their category; deleting a category deletes its links.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SortOrder   int    `json:"sortOrder"`
	IsCollapsed bool   `json:"isCollapsed"`
	Links       []Link `json:"links"`
}

// Link is one external resource card within a category.
type Link struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	LogoURL     string `json:"logoUrl,omitempty"`
	SortOrder   int    `json:"sortOrder"`
	CategoryID  string `json:"categoryId"`
}

// Snapshot is a complete serialized copy of settings plus the category tree,
// used for backup, restore, and remote sync.
type Snapshot struct {
	Version    string     `json:"version"`
	ExportedAt time.Time  `json:"exportedAt"`
	Settings   *Settings  `json:"settings"`
	Categories []Category `json:"categories"`
}

// SnapshotVersion is written into every export and recognized on import.
const SnapshotVersion = "1.0"

func (c Category) Key() string   { return c.ID }
func (c Category) Position() int { return c.SortOrder }
func (c Category) AtPosition(n int) Category {
	c.SortOrder = n
	return c
}

func (l Link) Key() string   { return l.ID }
func (l Link) Position() int { return l.SortOrder }
func (l Link) AtPosition(n int) Link {
	l.SortOrder = n
	return l
}
