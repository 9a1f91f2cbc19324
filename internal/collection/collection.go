// Package collection holds the ordered set of lists a user keeps and
// notifies observers whenever one of them changes.
package collection

import (
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/listkeeper/internal/model"
)

// ErrListNotFound is returned by lookups that require an existing list.
var ErrListNotFound = errors.New("list not found")

type Entity string

const (
	EntityList Entity = "list"
	EntityItem Entity = "item"
)

type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionToggled   Action = "toggled"
	ActionReordered Action = "reordered"
	ActionCleared   Action = "cleared"
	ActionReplaced  Action = "replaced"
)

// Event describes one change. ItemID is uuid.Nil for list-level events;
// ListID is uuid.Nil for collection-wide events.
type Event struct {
	Entity Entity
	Action Action
	ListID uuid.UUID
	ItemID uuid.UUID
}

// Observer is called synchronously after each change, on the goroutine
// that made it.
type Observer func(Event)

// Collection owns the lists. It is not safe for concurrent use; callers
// serialize access.
type Collection struct {
	lists     []*model.List
	observers []Observer
}

// New returns a collection holding lists in the given order.
func New(lists []*model.List) *Collection {
	if lists == nil {
		lists = []*model.List{}
	}
	return &Collection{lists: lists}
}

// Subscribe registers fn for every subsequent change.
func (c *Collection) Subscribe(fn Observer) {
	c.observers = append(c.observers, fn)
}

func (c *Collection) emit(ev Event) {
	for _, fn := range c.observers {
		fn(ev)
	}
}

// Lists returns the lists in user order. The slice is the collection's own.
func (c *Collection) Lists() []*model.List { return c.lists }

func (c *Collection) Len() int { return len(c.lists) }

func (c *Collection) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(c.lists, func(l *model.List) bool { return l.ID == id })
}

// List returns the list with the given id or ErrListNotFound.
func (c *Collection) List(id uuid.UUID) (*model.List, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return nil, ErrListNotFound
	}
	return c.lists[idx], nil
}

// AddList appends a new empty list. A blank name creates nothing.
func (c *Collection) AddList(name string, t model.ListType) (*model.List, bool) {
	l, ok := model.NewList(name, t)
	if !ok {
		return nil, false
	}
	c.lists = append(c.lists, l)
	c.emit(Event{Entity: EntityList, Action: ActionCreated, ListID: l.ID})
	return l, true
}

// DeleteList removes the list with the given id.
func (c *Collection) DeleteList(id uuid.UUID) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}
	c.lists = slices.Delete(c.lists, idx, idx+1)
	c.emit(Event{Entity: EntityList, Action: ActionDeleted, ListID: id})
	return true
}

// MoveLists relocates the lists at the from positions before position to.
func (c *Collection) MoveLists(from []int, to int) bool {
	moved, ok := model.MoveBlock(c.lists, from, to)
	if !ok {
		return false
	}
	c.lists = moved
	c.emit(Event{Entity: EntityList, Action: ActionReordered})
	return true
}

// Replace swaps in a whole new set of lists, e.g. after a restore.
func (c *Collection) Replace(lists []*model.List) {
	if lists == nil {
		lists = []*model.List{}
	}
	c.lists = lists
	c.emit(Event{Entity: EntityList, Action: ActionReplaced})
}

// RenameList renames a list. Blank names and unknown ids are ignored.
func (c *Collection) RenameList(id uuid.UUID, name string) bool {
	l, err := c.List(id)
	if err != nil || !l.UpdateName(name) {
		return false
	}
	c.emit(Event{Entity: EntityList, Action: ActionUpdated, ListID: id})
	return true
}

func (c *Collection) AddItem(listID uuid.UUID, name string, quantity float64, unit string, price *decimal.Decimal) (model.Item, bool) {
	l, err := c.List(listID)
	if err != nil {
		return model.Item{}, false
	}
	it, ok := l.AddItem(name, quantity, unit, price)
	if !ok {
		return model.Item{}, false
	}
	c.emit(Event{Entity: EntityItem, Action: ActionCreated, ListID: listID, ItemID: it.ID})
	return it, true
}

// AddItems inserts a batch at the unchecked/checked boundary and returns
// how many items were added.
func (c *Collection) AddItems(listID uuid.UUID, drafts []model.ItemDraft) int {
	l, err := c.List(listID)
	if err != nil {
		return 0
	}
	n := l.AddItems(drafts)
	if n > 0 {
		c.emit(Event{Entity: EntityItem, Action: ActionCreated, ListID: listID})
	}
	return n
}

func (c *Collection) ToggleItem(listID, itemID uuid.UUID) bool {
	l, err := c.List(listID)
	if err != nil || !l.ToggleItem(itemID) {
		return false
	}
	c.emit(Event{Entity: EntityItem, Action: ActionToggled, ListID: listID, ItemID: itemID})
	return true
}

func (c *Collection) UpdateItem(listID, itemID uuid.UUID, name string, price *decimal.Decimal, quantity float64, unit string) bool {
	l, err := c.List(listID)
	if err != nil || !l.UpdateItem(itemID, name, price, quantity, unit) {
		return false
	}
	c.emit(Event{Entity: EntityItem, Action: ActionUpdated, ListID: listID, ItemID: itemID})
	return true
}

func (c *Collection) DeleteItems(listID uuid.UUID, indices []int) bool {
	l, err := c.List(listID)
	if err != nil || !l.DeleteItems(indices) {
		return false
	}
	c.emit(Event{Entity: EntityItem, Action: ActionDeleted, ListID: listID})
	return true
}

func (c *Collection) MoveItems(listID uuid.UUID, from []int, to int) bool {
	l, err := c.List(listID)
	if err != nil || !l.MoveItems(from, to) {
		return false
	}
	c.emit(Event{Entity: EntityItem, Action: ActionReordered, ListID: listID})
	return true
}

// ClearChecked removes a list's checked items and returns how many went.
func (c *Collection) ClearChecked(listID uuid.UUID) int {
	l, err := c.List(listID)
	if err != nil {
		return 0
	}
	n := l.ClearChecked()
	if n > 0 {
		c.emit(Event{Entity: EntityItem, Action: ActionCleared, ListID: listID})
	}
	return n
}
