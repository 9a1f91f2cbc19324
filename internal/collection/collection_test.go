package collection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/listkeeper/internal/model"
)

func record(c *Collection) *[]Event {
	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })
	return &events
}

func listNames(c *Collection) []string {
	out := make([]string, 0, c.Len())
	for _, l := range c.Lists() {
		out = append(out, l.Name)
	}
	return out
}

func TestAddList(t *testing.T) {
	c := New(nil)
	events := record(c)

	l, ok := c.AddList("  Groceries ", model.ListTypeShopping)
	require.True(t, ok)
	assert.Equal(t, "Groceries", l.Name)

	_, ok = c.AddList("   ", model.ListTypeTask)
	assert.False(t, ok)

	assert.Equal(t, 1, c.Len())
	require.Len(t, *events, 1)
	assert.Equal(t, Event{Entity: EntityList, Action: ActionCreated, ListID: l.ID}, (*events)[0])
}

func TestListLookup(t *testing.T) {
	c := New(nil)
	l, _ := c.AddList("Chores", model.ListTypeTask)

	got, err := c.List(l.ID)
	require.NoError(t, err)
	assert.Same(t, l, got)

	_, err = c.List(uuid.New())
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestDeleteList(t *testing.T) {
	c := New(nil)
	a, _ := c.AddList("a", model.ListTypeShopping)
	c.AddList("b", model.ListTypeShopping)
	events := record(c)

	assert.True(t, c.DeleteList(a.ID))
	assert.False(t, c.DeleteList(a.ID))
	assert.Equal(t, []string{"b"}, listNames(c))
	assert.Len(t, *events, 1)
}

func TestMoveLists(t *testing.T) {
	c := New(nil)
	for _, n := range []string{"a", "b", "c"} {
		c.AddList(n, model.ListTypeShopping)
	}
	events := record(c)

	assert.True(t, c.MoveLists([]int{2}, 0))
	assert.Equal(t, []string{"c", "a", "b"}, listNames(c))

	assert.False(t, c.MoveLists([]int{0}, 9))
	assert.False(t, c.MoveLists([]int{1}, 2))
	assert.Equal(t, []string{"c", "a", "b"}, listNames(c))
	assert.Len(t, *events, 1)
}

func TestItemProxies(t *testing.T) {
	c := New(nil)
	l, _ := c.AddList("Groceries", model.ListTypeShopping)
	events := record(c)

	it, ok := c.AddItem(l.ID, "Bread", 1, "", nil)
	require.True(t, ok)
	n := c.AddItems(l.ID, []model.ItemDraft{{Name: "Eggs", Quantity: 12}, {Name: ""}})
	assert.Equal(t, 1, n)

	assert.True(t, c.ToggleItem(l.ID, it.ID))
	assert.True(t, c.UpdateItem(l.ID, l.Items[0].ID, "Free-range eggs", nil, 6, ""))
	assert.True(t, c.MoveItems(l.ID, []int{1}, 0))
	assert.Equal(t, 1, c.ClearChecked(l.ID))
	assert.True(t, c.DeleteItems(l.ID, []int{0}))
	assert.True(t, c.RenameList(l.ID, "Market"))

	actions := make([]Action, 0, len(*events))
	for _, ev := range *events {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []Action{
		ActionCreated, ActionCreated, ActionToggled, ActionUpdated,
		ActionReordered, ActionCleared, ActionDeleted, ActionUpdated,
	}, actions)
	assert.Empty(t, l.Items)
	assert.Equal(t, "Market", l.Name)
}

func TestNoopsEmitNothing(t *testing.T) {
	c := New(nil)
	l, _ := c.AddList("Groceries", model.ListTypeShopping)
	events := record(c)
	missing := uuid.New()

	_, ok := c.AddItem(missing, "Bread", 1, "", nil)
	assert.False(t, ok)
	_, ok = c.AddItem(l.ID, "  ", 1, "", nil)
	assert.False(t, ok)
	assert.Zero(t, c.AddItems(missing, []model.ItemDraft{{Name: "x"}}))
	assert.False(t, c.ToggleItem(l.ID, missing))
	assert.False(t, c.UpdateItem(missing, missing, "x", nil, 1, ""))
	assert.False(t, c.DeleteItems(l.ID, []int{0}))
	assert.False(t, c.MoveItems(l.ID, []int{0}, 1))
	assert.Zero(t, c.ClearChecked(l.ID))
	assert.False(t, c.RenameList(l.ID, " "))
	assert.False(t, c.RenameList(missing, "x"))

	assert.Empty(t, *events)
}

func TestReplace(t *testing.T) {
	c := New(nil)
	c.AddList("old", model.ListTypeShopping)
	events := record(c)

	fresh, _ := model.NewList("fresh", model.ListTypeTask)
	c.Replace([]*model.List{fresh})
	assert.Equal(t, []string{"fresh"}, listNames(c))

	c.Replace(nil)
	assert.Zero(t, c.Len())
	assert.NotNil(t, c.Lists())
	assert.Len(t, *events, 2)
}
