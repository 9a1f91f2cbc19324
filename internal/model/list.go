package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/listkeeper/internal/grocery"
	"github.com/dukerupert/listkeeper/internal/ordering"
)

// List is a named, ordered collection of items. Items are kept with all
// unchecked entries first; see package ordering.
//
// Mutating methods never fail. Invalid input (blank names, unknown ids,
// out-of-range positions) leaves the list untouched and reports false.
// A true result means the content changed and should be saved.
type List struct {
	ID         uuid.UUID
	Name       string
	Type       ListType
	Items      []Item
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewList creates an empty list. It reports false for a blank name.
func NewList(name string, t ListType) (*List, bool) {
	name, ok := CleanName(name)
	if !ok {
		return nil, false
	}
	if !t.IsValid() {
		t = DefaultListType
	}
	ts := now()
	return &List{
		ID:         uuid.New(),
		Name:       name,
		Type:       t,
		Items:      []Item{},
		CreatedAt:  ts,
		ModifiedAt: ts,
	}, true
}

func (l *List) Policy() ListPolicy { return l.Type.Policy() }

func (l *List) touch() { l.ModifiedAt = now() }

// IndexOf returns the position of the item with the given id, or -1.
func (l *List) IndexOf(id uuid.UUID) int {
	return slices.IndexFunc(l.Items, func(it Item) bool { return it.ID == id })
}

// Item returns a copy of the item with the given id.
func (l *List) Item(id uuid.UUID) (Item, bool) {
	idx := l.IndexOf(id)
	if idx < 0 {
		return Item{}, false
	}
	return l.Items[idx], true
}

func (l *List) nextSortOrder() int {
	next := 0
	for _, it := range l.Items {
		if it.SortOrder >= next {
			next = it.SortOrder + 1
		}
	}
	return next
}

// AddItem inserts a new unchecked item at the end of the unchecked
// partition. Quantity is clamped to MinQuantity and the unit trimmed.
// Items added to a shopping list are categorised by name.
func (l *List) AddItem(name string, quantity float64, unit string, price *decimal.Decimal) (Item, bool) {
	name, ok := CleanName(name)
	if !ok {
		return Item{}, false
	}
	if price != nil && price.IsNegative() {
		price = nil
	}

	item := Item{
		ID:        uuid.New(),
		Name:      name,
		Quantity:  ClampQuantity(quantity),
		Unit:      NormalizeUnit(unit),
		Price:     clonePrice(price),
		SortOrder: l.nextSortOrder(),
	}
	if l.Type == ListTypeShopping {
		item.Category = grocery.Categorize(name)
	}

	at := ordering.Boundary(l.Items, Item.OrderKey)
	l.Items = slices.Insert(l.Items, at, item)
	l.touch()
	return item, true
}

// AddItems adds each draft in order through AddItem and returns how many
// were added.
func (l *List) AddItems(drafts []ItemDraft) int {
	added := 0
	for _, d := range drafts {
		if _, ok := l.AddItem(d.Name, d.Quantity, d.Unit, d.Price); ok {
			added++
		}
	}
	return added
}

// ToggleItem flips the checked state of an item and moves it to the
// position the ordering rule requires.
func (l *List) ToggleItem(id uuid.UUID) bool {
	idx := l.IndexOf(id)
	if idx < 0 {
		return false
	}

	it := &l.Items[idx]
	if it.IsChecked {
		it.IsChecked = false
		it.CheckedAt = nil
	} else {
		ts := now()
		it.IsChecked = true
		it.CheckedAt = &ts
	}

	l.Items = ordering.Reinsert(l.Items, idx, Item.OrderKey)
	l.touch()
	return true
}

// UpdateItem edits an item in place. A blank name keeps the current name.
// Fields the list type does not support are reset: price to nil,
// quantity to 1, unit to empty.
func (l *List) UpdateItem(id uuid.UUID, name string, price *decimal.Decimal, quantity float64, unit string) bool {
	idx := l.IndexOf(id)
	if idx < 0 {
		return false
	}
	it := &l.Items[idx]
	policy := l.Policy()
	changed := false

	if n, ok := CleanName(name); ok && n != it.Name {
		it.Name = n
		changed = true
	}

	if price != nil && price.IsNegative() {
		price = nil
	}
	if !policy.SupportsPrice {
		price = nil
	}
	if !samePrice(price, it.Price) {
		it.Price = clonePrice(price)
		changed = true
	}

	quantity = ClampQuantity(quantity)
	unit = NormalizeUnit(unit)
	if !policy.SupportsQuantity {
		quantity = DefaultQuantity
		unit = ""
	}
	if quantity != it.Quantity {
		it.Quantity = quantity
		changed = true
	}
	if unit != it.Unit {
		it.Unit = unit
		changed = true
	}

	if changed {
		l.touch()
	}
	return changed
}

// DeleteItems removes the items at the given positions. Invalid positions
// are skipped.
func (l *List) DeleteItems(indices []int) bool {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(l.Items) {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return false
	}

	kept := l.Items[:0:0]
	for i, it := range l.Items {
		if _, ok := drop[i]; !ok {
			kept = append(kept, it)
		}
	}
	l.Items = kept
	l.touch()
	return true
}

// MoveItems relocates the items at the from positions so they sit before
// the item currently at position to; to == len(Items) moves them to the end.
// After a move the current order becomes the insertion order.
func (l *List) MoveItems(from []int, to int) bool {
	moved, ok := MoveBlock(l.Items, from, to)
	if !ok {
		return false
	}
	for i := range moved {
		moved[i].SortOrder = i
	}
	l.Items = moved
	l.touch()
	return true
}

// ClearChecked removes every checked item and returns how many were removed.
func (l *List) ClearChecked() int {
	kept := l.Items[:0:0]
	for _, it := range l.Items {
		if !it.IsChecked {
			kept = append(kept, it)
		}
	}
	removed := len(l.Items) - len(kept)
	if removed > 0 {
		l.Items = kept
		l.touch()
	}
	return removed
}

// UpdateName renames the list. A blank name is ignored.
func (l *List) UpdateName(name string) bool {
	name, ok := CleanName(name)
	if !ok || name == l.Name {
		return false
	}
	l.Name = name
	l.touch()
	return true
}

// TotalPrice sums price × quantity over all items. It is zero for list
// types without prices.
func (l *List) TotalPrice() decimal.Decimal {
	if !l.Policy().SupportsPrice {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, it := range l.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CompletionFraction is checked items over all items for list types that
// track completion, otherwise zero. An empty list is zero.
func (l *List) CompletionFraction() float64 {
	if !l.Policy().TracksCompletion || len(l.Items) == 0 {
		return 0
	}
	return float64(l.CheckedCount()) / float64(len(l.Items))
}

func (l *List) CheckedCount() int {
	n := 0
	for _, it := range l.Items {
		if it.IsChecked {
			n++
		}
	}
	return n
}

func (l *List) UncheckedCount() int { return len(l.Items) - l.CheckedCount() }

// MoveBlock returns a copy of items with the entries at from moved before
// position to. It reports false when nothing moves: fewer than two items,
// to outside [0, len], no valid source position, or a move that leaves the
// order as it was.
func MoveBlock[T any](items []T, from []int, to int) ([]T, bool) {
	if len(items) < 2 || to < 0 || to > len(items) {
		return nil, false
	}

	seen := make(map[int]struct{}, len(from))
	for _, i := range from {
		if i >= 0 && i < len(items) {
			seen[i] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, false
	}

	block := make([]int, 0, len(seen))
	rest := make([]int, 0, len(items)-len(seen))
	insertAt := to
	for i := range items {
		if _, ok := seen[i]; ok {
			block = append(block, i)
			if i < to {
				insertAt--
			}
			continue
		}
		rest = append(rest, i)
	}

	order := make([]int, 0, len(items))
	order = append(order, rest[:insertAt]...)
	order = append(order, block...)
	order = append(order, rest[insertAt:]...)
	if slices.IsSorted(order) {
		return nil, false
	}

	out := make([]T, len(order))
	for i, src := range order {
		out[i] = items[src]
	}
	return out, true
}
