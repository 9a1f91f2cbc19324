// Package ordering keeps a list's entries in check order: every unchecked
// entry precedes every checked entry, unchecked entries stay in insertion
// order, and checked entries are sorted most recently checked first.
package ordering

import "time"

// Key is the part of an entry the ordering rule looks at.
type Key struct {
	Checked   bool
	CheckedAt time.Time
	// Rank is the entry's insertion position. Lower ranks come first
	// within the unchecked partition.
	Rank int
}

// Precedes reports whether an entry with key a must be placed before an
// entry with key b.
func Precedes(a, b Key) bool {
	switch {
	case !a.Checked && b.Checked:
		return true
	case a.Checked && b.Checked:
		return b.CheckedAt.Before(a.CheckedAt)
	case !a.Checked && !b.Checked:
		return a.Rank < b.Rank
	default:
		return false
	}
}

// Reinsert moves the entry at index idx to the position the ordering rule
// requires, leaving the relative order of every other entry unchanged.
// The entry is removed, the remaining entries are scanned in order, and it
// is inserted before the first entry it must precede, or appended when
// there is none. An out-of-range idx returns items unchanged.
func Reinsert[T any](items []T, idx int, key func(T) Key) []T {
	if idx < 0 || idx >= len(items) {
		return items
	}

	moved := items[idx]
	rest := make([]T, 0, len(items))
	rest = append(rest, items[:idx]...)
	rest = append(rest, items[idx+1:]...)

	movedKey := key(moved)
	pos := len(rest)
	for i, candidate := range rest {
		if Precedes(movedKey, key(candidate)) {
			pos = i
			break
		}
	}

	out := make([]T, 0, len(items))
	out = append(out, rest[:pos]...)
	out = append(out, moved)
	out = append(out, rest[pos:]...)
	return out
}

// Boundary returns the index of the first checked entry, or len(items)
// when nothing is checked. New unchecked entries are inserted here.
func Boundary[T any](items []T, key func(T) Key) int {
	for i, it := range items {
		if key(it).Checked {
			return i
		}
	}
	return len(items)
}

// InOrder reports whether items satisfy the partition rule: no unchecked
// entry after a checked one, and checked entries never older than the
// entry that follows them.
func InOrder[T any](items []T, key func(T) Key) bool {
	seenChecked := false
	var prev time.Time
	for _, it := range items {
		k := key(it)
		if !k.Checked {
			if seenChecked {
				return false
			}
			continue
		}
		if seenChecked && prev.Before(k.CheckedAt) {
			return false
		}
		seenChecked = true
		prev = k.CheckedAt
	}
	return true
}
