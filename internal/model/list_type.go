package model

import "strings"

// ListType selects which optional item fields a list makes use of.
type ListType string

const (
	ListTypeShopping ListType = "shopping"
	ListTypeTask     ListType = "task"
)

// DefaultListType is used when a stored list carries no type.
const DefaultListType = ListTypeShopping

func (t ListType) String() string { return string(t) }

func (t ListType) IsValid() bool {
	switch t {
	case ListTypeShopping, ListTypeTask:
		return true
	}
	return false
}

// ParseListType maps a stored or user-supplied name to a ListType.
// Matching is case-insensitive; ok is false for unknown names.
func ParseListType(s string) (ListType, bool) {
	t := ListType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", false
	}
	return t, true
}

// ListPolicy describes which optional item fields take effect for a list type.
// Items always carry price, quantity and unit; the policy only gates their effect.
type ListPolicy struct {
	SupportsPrice    bool
	SupportsQuantity bool
	TracksCompletion bool
}

// Policy returns the field policy for t. Unknown types support nothing.
func (t ListType) Policy() ListPolicy {
	switch t {
	case ListTypeShopping:
		return ListPolicy{SupportsPrice: true, SupportsQuantity: true}
	case ListTypeTask:
		return ListPolicy{TracksCompletion: true}
	}
	return ListPolicy{}
}
