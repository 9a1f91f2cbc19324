package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/listkeeper/internal/ordering"
)

const (
	// MinQuantity is the smallest quantity an item can hold.
	MinQuantity = 0.001
	// DefaultQuantity is used when no quantity is given.
	DefaultQuantity = 1.0
)

// now is the clock used for check and modification times.
var now = func() time.Time { return time.Now().UTC() }

// Item is a single entry of a list. CheckedAt is set iff IsChecked.
// Unit is empty when absent, Price is nil when absent.
type Item struct {
	ID        uuid.UUID
	Name      string
	IsChecked bool
	CheckedAt *time.Time
	Price     *decimal.Decimal
	Quantity  float64
	Unit      string
	Category  string
	SortOrder int
}

// ItemDraft is a request to add an item, e.g. from the suggestion service.
type ItemDraft struct {
	Name     string
	Quantity float64
	Unit     string
	Price    *decimal.Decimal
}

// OrderKey returns the key the ordering engine sorts by.
func (i Item) OrderKey() ordering.Key {
	k := ordering.Key{Checked: i.IsChecked, Rank: i.SortOrder}
	if i.CheckedAt != nil {
		k.CheckedAt = *i.CheckedAt
	}
	return k
}

// LineTotal is price × quantity, zero when the item has no price.
func (i Item) LineTotal() decimal.Decimal {
	if i.Price == nil {
		return decimal.Zero
	}
	return i.Price.Mul(decimal.NewFromFloat(i.Quantity))
}

// CleanName trims s and reports whether anything is left.
func CleanName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// ClampQuantity raises q to MinQuantity.
func ClampQuantity(q float64) float64 {
	if math.IsNaN(q) || q < MinQuantity {
		return MinQuantity
	}
	return q
}

// NormalizeUnit trims u; an empty result means no unit.
func NormalizeUnit(u string) string {
	return strings.TrimSpace(u)
}

func samePrice(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func clonePrice(p *decimal.Decimal) *decimal.Decimal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
