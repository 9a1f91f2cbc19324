package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/listkeeper/internal/model"
)

// listView is the API representation of a list. Views are built on the
// session goroutine so they never share memory with the live collection.
type listView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Items          []itemView `json:"items"`
	CreatedAt      time.Time  `json:"created_at"`
	ModifiedAt     time.Time  `json:"modified_at"`
	TotalPrice     *string    `json:"total_price,omitempty"`
	Completion     float64    `json:"completion"`
	CheckedCount   int        `json:"checked_count"`
	UncheckedCount int        `json:"unchecked_count"`
}

type itemView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Checked   bool       `json:"checked"`
	CheckedAt *time.Time `json:"checked_at,omitempty"`
	Price     *string    `json:"price,omitempty"`
	LineTotal *string    `json:"line_total,omitempty"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit,omitempty"`
	Category  string     `json:"category,omitempty"`
}

// listSummary is used by the index route, which omits items.
type listSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	ModifiedAt     time.Time `json:"modified_at"`
	CheckedCount   int       `json:"checked_count"`
	UncheckedCount int       `json:"unchecked_count"`
}

func money(d decimal.Decimal) *string {
	s := d.StringFixed(2)
	return &s
}

func newItemView(it model.Item, supportsPrice bool) itemView {
	v := itemView{
		ID:       it.ID.String(),
		Name:     it.Name,
		Checked:  it.IsChecked,
		Quantity: it.Quantity,
		Unit:     it.Unit,
		Category: it.Category,
	}
	if it.CheckedAt != nil {
		t := *it.CheckedAt
		v.CheckedAt = &t
	}
	if supportsPrice && it.Price != nil {
		p := it.Price.String()
		v.Price = &p
		v.LineTotal = money(it.LineTotal())
	}
	return v
}

func newListView(l *model.List) listView {
	policy := l.Policy()
	items := make([]itemView, 0, len(l.Items))
	for _, it := range l.Items {
		items = append(items, newItemView(it, policy.SupportsPrice))
	}
	v := listView{
		ID:             l.ID.String(),
		Name:           l.Name,
		Type:           l.Type.String(),
		Items:          items,
		CreatedAt:      l.CreatedAt,
		ModifiedAt:     l.ModifiedAt,
		Completion:     l.CompletionFraction(),
		CheckedCount:   l.CheckedCount(),
		UncheckedCount: l.UncheckedCount(),
	}
	if policy.SupportsPrice {
		v.TotalPrice = money(l.TotalPrice())
	}
	return v
}

func newListSummary(l *model.List) listSummary {
	return listSummary{
		ID:             l.ID.String(),
		Name:           l.Name,
		Type:           l.Type.String(),
		ModifiedAt:     l.ModifiedAt,
		CheckedCount:   l.CheckedCount(),
		UncheckedCount: l.UncheckedCount(),
	}
}

// backupView is the API representation of a backup record.
type backupView struct {
	ID          int64      `json:"id"`
	Filename    string     `json:"filename"`
	Status      string     `json:"status"`
	SizeBytes   int64      `json:"size_bytes"`
	ListCount   int        `json:"list_count"`
	Error       string     `json:"error,omitempty"`
	Restorable  bool       `json:"restorable"`
	DurationMS  int64      `json:"duration_ms,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newBackupView(b *model.Backup) backupView {
	return backupView{
		ID:          b.ID,
		Filename:    b.Filename,
		Status:      string(b.Status),
		SizeBytes:   b.SizeBytes,
		ListCount:   b.ListCount,
		Error:       b.ErrorMessage,
		Restorable:  b.Restorable(),
		DurationMS:  b.Elapsed().Milliseconds(),
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
		CreatedAt:   b.CreatedAt,
	}
}
