// Package ordering maintains a contiguous, zero-based sort order for the
// siblings of an ordered collection. The same operations serve both nesting
// levels of the directory (categories, and the links within a category).
//
// Operations are pure transforms over valid input: callers bound-check
// indices against the current collection length, and boundary moves are
// defined no-ops rather than errors.
package ordering

import "sort"

// Element is a member of an ordered sibling collection. AtPosition returns
// a copy of the element with its sort order set to the given position, so
// operations never mutate their input.
type Element[E any] interface {
	Key() string
	Position() int
	AtPosition(int) E
}

// Reindex assigns each element's sort order from its position in the
// sequence. It runs after every structural change, including deletes where
// the visible order is unchanged, to close index gaps.
func Reindex[E Element[E]](items []E) []E {
	out := make([]E, len(items))
	for i, item := range items {
		out[i] = item.AtPosition(i)
	}
	return out
}

// Normalize sorts by sort order ascending without reassigning positions.
// Storage iteration order is never trusted, so every read path normalizes
// even when the persisted order looks correct. Equal sort orders (corrupted
// data) break ties by key, keeping repeated reads deterministic.
func Normalize[E Element[E]](items []E) []E {
	out := make([]E, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position() != out[j].Position() {
			return out[i].Position() < out[j].Position()
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// MoveUp swaps the element at index with its predecessor. Index 0 is a
// defined boundary no-op.
func MoveUp[E Element[E]](items []E, index int) []E {
	if index <= 0 || index >= len(items) {
		return items
	}
	out := make([]E, len(items))
	copy(out, items)
	out[index-1], out[index] = out[index], out[index-1]
	return Reindex(out)
}

// MoveDown swaps the element at index with its successor. The last index is
// a defined boundary no-op.
func MoveDown[E Element[E]](items []E, index int) []E {
	if index < 0 || index >= len(items)-1 {
		return items
	}
	out := make([]E, len(items))
	copy(out, items)
	out[index], out[index+1] = out[index+1], out[index]
	return Reindex(out)
}

// Move removes the element at fromIndex and reinserts it at toIndex in the
// remaining sequence (drag-and-drop semantics: the target index is evaluated
// against the list after removal). Equal indices are a no-op.
func Move[E Element[E]](items []E, fromIndex, toIndex int) []E {
	if fromIndex == toIndex || fromIndex < 0 || fromIndex >= len(items) || toIndex < 0 || toIndex >= len(items) {
		return items
	}
	out := make([]E, 0, len(items))
	out = append(out, items[:fromIndex]...)
	out = append(out, items[fromIndex+1:]...)
	moved := items[fromIndex]
	out = append(out[:toIndex], append([]E{moved}, out[toIndex:]...)...)
	return Reindex(out)
}

// Append places the new element at the end with sort order len(items).
func Append[E Element[E]](items []E, item E) []E {
	out := make([]E, len(items), len(items)+1)
	copy(out, items)
	return append(out, item.AtPosition(len(items)))
}

// Remove filters out the element with the given key and reindexes the
// remainder so no gap is left behind.
func Remove[E Element[E]](items []E, key string) []E {
	out := make([]E, 0, len(items))
	for _, item := range items {
		if item.Key() == key {
			continue
		}
		out = append(out, item)
	}
	return Reindex(out)
}
