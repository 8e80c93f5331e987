package directory

import (
	"waypost/internal/ordering"
	"waypost/internal/util"
)

// Draft holds staged edits to the category tree. The store never sees a
// partial edit: mutations accumulate here and the complete tree is pushed
// in one full-replace save. There is no autosave.
type Draft struct {
	categories []Category
}

// NewDraft copies the current persisted tree into a staging area,
// normalizing order and closing any index gaps inherited from the store.
func NewDraft(categories []Category) *Draft {
	staged := ordering.Reindex(ordering.Normalize(categories))
	for i, category := range staged {
		staged[i].Links = ordering.Reindex(ordering.Normalize(category.Links))
	}
	return &Draft{categories: staged}
}

// Tree returns the complete staged tree, ready for a full-replace save.
func (d *Draft) Tree() []Category {
	out := make([]Category, len(d.categories))
	copy(out, d.categories)
	return out
}

// AddCategory appends a new category at the end of the tree.
func (d *Draft) AddCategory(name string) Category {
	category := Category{
		ID:    util.NewID("cat"),
		Name:  name,
		Links: []Link{},
	}
	d.categories = ordering.Append(d.categories, category)
	return d.categories[len(d.categories)-1]
}

// RenameCategory updates a category's display name in place.
func (d *Draft) RenameCategory(categoryID, name string) bool {
	for i := range d.categories {
		if d.categories[i].ID == categoryID {
			d.categories[i].Name = name
			return true
		}
	}
	return false
}

// DeleteCategory removes a category and all of its links, then reindexes
// the remaining siblings.
func (d *Draft) DeleteCategory(categoryID string) {
	d.categories = ordering.Remove(d.categories, categoryID)
}

// MoveCategoryUp swaps the category with its predecessor.
func (d *Draft) MoveCategoryUp(categoryID string) {
	d.categories = ordering.MoveUp(d.categories, d.categoryIndex(categoryID))
}

// MoveCategoryDown swaps the category with its successor.
func (d *Draft) MoveCategoryDown(categoryID string) {
	d.categories = ordering.MoveDown(d.categories, d.categoryIndex(categoryID))
}

// MoveCategory reinserts a category at an arbitrary position
// (drag-and-drop).
func (d *Draft) MoveCategory(fromIndex, toIndex int) {
	if fromIndex < 0 || fromIndex >= len(d.categories) || toIndex < 0 || toIndex >= len(d.categories) {
		return
	}
	d.categories = ordering.Move(d.categories, fromIndex, toIndex)
}

// AddLink appends a link to the end of a category.
func (d *Draft) AddLink(categoryID string, link Link) (Link, bool) {
	i := d.categoryIndex(categoryID)
	if i < 0 {
		return Link{}, false
	}
	if link.ID == "" {
		link.ID = util.NewID("link")
	}
	link.CategoryID = categoryID
	d.categories[i].Links = ordering.Append(d.categories[i].Links, link)
	return d.categories[i].Links[len(d.categories[i].Links)-1], true
}

// EditLink replaces the editable fields of an existing link, leaving its
// identity and position untouched.
func (d *Draft) EditLink(categoryID, linkID string, name, url, description, logoURL string) bool {
	i := d.categoryIndex(categoryID)
	if i < 0 {
		return false
	}
	for j := range d.categories[i].Links {
		if d.categories[i].Links[j].ID != linkID {
			continue
		}
		d.categories[i].Links[j].Name = name
		d.categories[i].Links[j].URL = url
		d.categories[i].Links[j].Description = description
		d.categories[i].Links[j].LogoURL = logoURL
		return true
	}
	return false
}

// DeleteLink removes a link and reindexes its remaining siblings.
func (d *Draft) DeleteLink(categoryID, linkID string) {
	i := d.categoryIndex(categoryID)
	if i < 0 {
		return
	}
	d.categories[i].Links = ordering.Remove(d.categories[i].Links, linkID)
}

// MoveLinkUp swaps a link with its predecessor within its category.
func (d *Draft) MoveLinkUp(categoryID, linkID string) {
	i := d.categoryIndex(categoryID)
	if i < 0 {
		return
	}
	d.categories[i].Links = ordering.MoveUp(d.categories[i].Links, linkIndex(d.categories[i].Links, linkID))
}

// MoveLinkDown swaps a link with its successor within its category.
func (d *Draft) MoveLinkDown(categoryID, linkID string) {
	i := d.categoryIndex(categoryID)
	if i < 0 {
		return
	}
	d.categories[i].Links = ordering.MoveDown(d.categories[i].Links, linkIndex(d.categories[i].Links, linkID))
}

// MoveLink reinserts a link at an arbitrary position within its category.
func (d *Draft) MoveLink(categoryID string, fromIndex, toIndex int) {
	i := d.categoryIndex(categoryID)
	if i < 0 {
		return
	}
	links := d.categories[i].Links
	if fromIndex < 0 || fromIndex >= len(links) || toIndex < 0 || toIndex >= len(links) {
		return
	}
	d.categories[i].Links = ordering.Move(links, fromIndex, toIndex)
}

func (d *Draft) categoryIndex(categoryID string) int {
	for i, category := range d.categories {
		if category.ID == categoryID {
			return i
		}
	}
	return -1
}

func linkIndex(links []Link, linkID string) int {
	for i, link := range links {
		if link.ID == linkID {
			return i
		}
	}
	return -1
}
