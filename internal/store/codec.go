package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/listkeeper/internal/model"
)

// ErrCorruptArtifact wraps every error that makes a stored artifact
// unreadable as a whole.
var ErrCorruptArtifact = errors.New("corrupt list artifact")

// On-disk field names. They are read back by older and newer versions
// alike and must keep their meaning.
const (
	fieldID         = "id"
	fieldName       = "name"
	fieldItems      = "items"
	fieldListType   = "listType"
	fieldCreatedAt  = "createdAt"
	fieldModifiedAt = "modifiedAt"

	fieldIsChecked = "isChecked"
	fieldCheckedAt = "checkedTimestamp"
	fieldPrice     = "price"
	fieldQuantity  = "quantity"
	fieldUnit      = "unit"
	fieldCategory  = "category"
	fieldSortOrder = "sortOrder"
)

type wireList struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Items      []wireItem `json:"items"`
	ListType   string     `json:"listType"`
	CreatedAt  time.Time  `json:"createdAt"`
	ModifiedAt time.Time  `json:"modifiedAt"`
}

type wireItem struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	IsChecked        bool         `json:"isChecked"`
	CheckedTimestamp *time.Time   `json:"checkedTimestamp,omitempty"`
	Price            *json.Number `json:"price,omitempty"`
	Quantity         float64      `json:"quantity"`
	Unit             string       `json:"unit,omitempty"`
	Category         string       `json:"category,omitempty"`
	SortOrder        int          `json:"sortOrder"`
}

func toWire(l *model.List) wireList {
	w := wireList{
		ID:         l.ID.String(),
		Name:       l.Name,
		Items:      make([]wireItem, len(l.Items)),
		ListType:   l.Type.String(),
		CreatedAt:  l.CreatedAt.UTC(),
		ModifiedAt: l.ModifiedAt.UTC(),
	}
	for i, it := range l.Items {
		wi := wireItem{
			ID:        it.ID.String(),
			Name:      it.Name,
			IsChecked: it.IsChecked,
			Quantity:  it.Quantity,
			Unit:      it.Unit,
			Category:  it.Category,
			SortOrder: it.SortOrder,
		}
		if it.IsChecked && it.CheckedAt != nil {
			ts := it.CheckedAt.UTC()
			wi.CheckedTimestamp = &ts
		}
		if it.Price != nil {
			n := json.Number(it.Price.String())
			wi.Price = &n
		}
		w.Items[i] = wi
	}
	return w
}

// Encode serializes the whole collection. The output is indented and
// ends in a newline.
func Encode(lists []*model.List) ([]byte, error) {
	out := make([]wireList, len(lists))
	for i, l := range lists {
		out[i] = toWire(l)
	}
	b, err := jsonMarshalStable(out)
	if err != nil {
		return nil, fmt.Errorf("encode lists: %w", err)
	}
	return b, nil
}

// EncodeList serializes a single list in the same shape it has inside the
// collection artifact. It is what the export endpoint serves.
func EncodeList(l *model.List) ([]byte, error) {
	b, err := jsonMarshalStable(toWire(l))
	if err != nil {
		return nil, fmt.Errorf("encode list %s: %w", l.ID, err)
	}
	return b, nil
}

func jsonMarshalStable(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Decode reads a collection artifact. Missing or malformed optional
// fields fall back to defaults and are logged at warn; a missing or
// malformed id or name, or a malformed document, fails the whole decode
// with ErrCorruptArtifact.
func Decode(data []byte, logger *slog.Logger) ([]*model.List, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, corrupt("document is not a list array: %v", err)
	}

	lists := make([]*model.List, 0, len(raws))
	seen := make(map[uuid.UUID]struct{}, len(raws))
	for i, raw := range raws {
		l, err := decodeList(raw, logger)
		if err != nil {
			return nil, fmt.Errorf("list %d: %w", i, err)
		}
		if _, dup := seen[l.ID]; dup {
			return nil, corrupt("list %d: duplicate id %s", i, l.ID)
		}
		seen[l.ID] = struct{}{}
		lists = append(lists, l)
	}
	return lists, nil
}

// DecodeList reads a single list as produced by EncodeList.
func DecodeList(data []byte, logger *slog.Logger) (*model.List, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return decodeList(data, logger)
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptArtifact, fmt.Sprintf(format, args...))
}

type fields map[string]json.RawMessage

func objectFields(raw json.RawMessage) (fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errors.New("not an object")
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// has reports whether key is present with a non-null value.
func (f fields) has(key string) bool {
	raw, ok := f[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (f fields) requireString(key string) (string, error) {
	if !f.has(key) {
		return "", corrupt("missing %q", key)
	}
	var s string
	if err := json.Unmarshal(f[key], &s); err != nil {
		return "", corrupt("%q is not a string", key)
	}
	return s, nil
}

// requireName reads the name field, trimmed. Blank names are malformed.
func (f fields) requireName() (string, error) {
	s, err := f.requireString(fieldName)
	if err != nil {
		return "", err
	}
	name, ok := model.CleanName(s)
	if !ok {
		return "", corrupt("blank %q", fieldName)
	}
	return name, nil
}

func (f fields) requireID() (uuid.UUID, error) {
	s, err := f.requireString(fieldID)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, corrupt("malformed id %q", s)
	}
	return id, nil
}

func decodeList(raw json.RawMessage, logger *slog.Logger) (*model.List, error) {
	f, err := objectFields(raw)
	if err != nil {
		return nil, corrupt("list: %v", err)
	}
	id, err := f.requireID()
	if err != nil {
		return nil, err
	}
	name, err := f.requireName()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", id, err)
	}

	log := logger.With("list_id", id)
	l := &model.List{
		ID:   id,
		Name: name,
		Type: model.DefaultListType,
	}

	if f.has(fieldListType) {
		var s string
		if err := json.Unmarshal(f[fieldListType], &s); err != nil {
			log.Warn("list type is not a string, using default", "default", model.DefaultListType)
		} else if t, ok := model.ParseListType(s); ok {
			l.Type = t
		} else {
			log.Warn("unknown list type, using default", "list_type", s, "default", model.DefaultListType)
		}
	}

	ts := time.Now().UTC()
	l.CreatedAt = decodeTime(f, fieldCreatedAt, ts, log)
	l.ModifiedAt = decodeTime(f, fieldModifiedAt, ts, log)

	l.Items = []model.Item{}
	if f.has(fieldItems) {
		var rawItems []json.RawMessage
		if err := json.Unmarshal(f[fieldItems], &rawItems); err != nil {
			return nil, corrupt("list %s: items is not an array", id)
		}
		renumber := false
		seen := make(map[uuid.UUID]struct{}, len(rawItems))
		for i, ri := range rawItems {
			it, hasOrder, err := decodeItem(ri, l.CreatedAt, log)
			if err != nil {
				return nil, fmt.Errorf("list %s item %d: %w", id, i, err)
			}
			if _, dup := seen[it.ID]; dup {
				return nil, corrupt("list %s: duplicate item id %s", id, it.ID)
			}
			seen[it.ID] = struct{}{}
			if !hasOrder {
				renumber = true
			}
			l.Items = append(l.Items, it)
		}
		if renumber {
			for i := range l.Items {
				l.Items[i].SortOrder = i
			}
		}
	}
	return l, nil
}

func decodeItem(raw json.RawMessage, listCreated time.Time, logger *slog.Logger) (model.Item, bool, error) {
	f, err := objectFields(raw)
	if err != nil {
		return model.Item{}, false, corrupt("item: %v", err)
	}
	id, err := f.requireID()
	if err != nil {
		return model.Item{}, false, err
	}
	name, err := f.requireName()
	if err != nil {
		return model.Item{}, false, err
	}

	log := logger.With("item_id", id)
	it := model.Item{
		ID:       id,
		Name:     name,
		Quantity: decodeQuantity(f, log),
		Price:    decodePrice(f, log),
	}

	if f.has(fieldIsChecked) {
		if err := json.Unmarshal(f[fieldIsChecked], &it.IsChecked); err != nil {
			log.Warn("isChecked is not a boolean, treating as unchecked")
		}
	}
	if it.IsChecked {
		ts := decodeTime(f, fieldCheckedAt, listCreated, log)
		it.CheckedAt = &ts
	}

	if f.has(fieldUnit) {
		var s string
		if err := json.Unmarshal(f[fieldUnit], &s); err != nil {
			log.Warn("unit is not a string, dropping it")
		}
		it.Unit = model.NormalizeUnit(s)
	}
	if f.has(fieldCategory) {
		var s string
		if err := json.Unmarshal(f[fieldCategory], &s); err == nil {
			it.Category = strings.TrimSpace(s)
		}
	}

	hasOrder := false
	if f.has(fieldSortOrder) {
		if err := json.Unmarshal(f[fieldSortOrder], &it.SortOrder); err == nil {
			hasOrder = true
		}
	}
	return it, hasOrder, nil
}

// decodeQuantity accepts a JSON number, which covers both the older
// integral form and the fractional one, and then a numeric string. Anything else becomes
// model.DefaultQuantity. The result is clamped to model.MinQuantity.
func decodeQuantity(f fields, logger *slog.Logger) float64 {
	if !f.has(fieldQuantity) {
		return model.DefaultQuantity
	}
	raw := f[fieldQuantity]

	var q float64
	if err := json.Unmarshal(raw, &q); err == nil {
		return model.ClampQuantity(q)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if q, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return model.ClampQuantity(q)
		}
	}
	logger.Warn("unreadable quantity, using default", "raw", string(raw), "default", model.DefaultQuantity)
	return model.DefaultQuantity
}

// decodePrice accepts a JSON number or a numeric string. Negative or
// unreadable prices are dropped.
func decodePrice(f fields, logger *slog.Logger) *decimal.Decimal {
	if !f.has(fieldPrice) {
		return nil
	}
	raw := bytes.TrimSpace(f[fieldPrice])
	s := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			s = ""
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		logger.Warn("unreadable price, dropping it", "raw", string(raw))
		return nil
	}
	if d.IsNegative() {
		logger.Warn("negative price, dropping it", "price", d.String())
		return nil
	}
	return &d
}

// Timestamps must stay within what RFC 3339 can write back.
var (
	minUnix = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxUnix = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

func encodable(ts time.Time) bool {
	y := ts.Year()
	return y >= 0 && y <= 9999
}

// decodeTime reads an RFC 3339 string or a number of Unix seconds.
// Missing values become def; malformed or out-of-range ones are logged and
// become def.
func decodeTime(f fields, key string, def time.Time, logger *slog.Logger) time.Time {
	if !f.has(key) {
		return def
	}
	raw := f[key]

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil && encodable(ts.UTC()) {
			return ts.UTC()
		}
	} else {
		var secs float64
		if err := json.Unmarshal(raw, &secs); err == nil && secs >= float64(minUnix) && secs <= float64(maxUnix) {
			whole := int64(secs)
			frac := int64((secs - float64(whole)) * 1e9)
			if ts := time.Unix(whole, frac).UTC(); encodable(ts) {
				return ts
			}
		}
	}
	logger.Warn("unreadable timestamp, using default", "field", key, "raw", string(raw))
	return def
}
