package store

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/listkeeper/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleLists(t *testing.T) []*model.List {
	t.Helper()
	shop, ok := model.NewList("Groceries", model.ListTypeShopping)
	require.True(t, ok)
	shop.AddItem("Apples", 2, "kg", dec("1.50"))
	shop.AddItem("Cheese", 1, "", dec("2.25"))
	shop.AddItem("Onions", 0.5, "", nil)
	require.True(t, shop.ToggleItem(shop.Items[1].ID))

	chores, ok := model.NewList("Chores", model.ListTypeTask)
	require.True(t, ok)
	chores.AddItem("Mow lawn", 1, "", nil)
	chores.AddItem("Fix gate", 1, "", nil)
	require.True(t, chores.MoveItems([]int{1}, 0))

	empty, ok := model.NewList("Empty", model.ListTypeShopping)
	require.True(t, ok)
	return []*model.List{shop, chores, empty}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	lists := sampleLists(t)

	first, err := Encode(lists)
	require.NoError(t, err)

	decoded, err := Decode(first, discardLogger())
	require.NoError(t, err)
	require.Len(t, decoded, len(lists))

	for i, l := range lists {
		got := decoded[i]
		assert.Equal(t, l.ID, got.ID)
		assert.Equal(t, l.Name, got.Name)
		assert.Equal(t, l.Type, got.Type)
		assert.True(t, l.CreatedAt.Equal(got.CreatedAt))
		require.Len(t, got.Items, len(l.Items))
		for j, it := range l.Items {
			assert.Equal(t, it.ID, got.Items[j].ID)
			assert.Equal(t, it.Name, got.Items[j].Name)
			assert.Equal(t, it.IsChecked, got.Items[j].IsChecked)
			assert.Equal(t, it.Quantity, got.Items[j].Quantity)
			assert.Equal(t, it.Unit, got.Items[j].Unit)
			assert.Equal(t, it.SortOrder, got.Items[j].SortOrder)
		}
		assert.True(t, l.TotalPrice().Equal(got.TotalPrice()))
	}

	second, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestEncodeEmptyCollection(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	lists, err := Decode(data, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestEncodeOmitsAbsentFields(t *testing.T) {
	l, _ := model.NewList("Chores", model.ListTypeTask)
	l.AddItem("Sweep", 1, "", nil)

	data, err := EncodeList(l)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"price"`)
	assert.NotContains(t, string(data), `"unit"`)
	assert.NotContains(t, string(data), `"checkedTimestamp"`)
	assert.Contains(t, string(data), `"listType": "task"`)
	assert.Contains(t, string(data), `"quantity": 1`)
}

func TestDecodeLegacyQuantity(t *testing.T) {
	data := []byte(`[{
		"id": "6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01",
		"name": "Old list",
		"items": [
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01", "name": "Eggs", "quantity": 3},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c02", "name": "Flour", "quantity": 1.25},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c03", "name": "Milk", "quantity": "2"},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c04", "name": "Salt", "quantity": {"value": 2}},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c05", "name": "Yeast", "quantity": 0},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c06", "name": "Sugar"}
		]
	}]`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	lists, err := Decode(data, logger)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	items := lists[0].Items
	require.Len(t, items, 6)

	assert.Equal(t, 3.0, items[0].Quantity)
	assert.Equal(t, 1.25, items[1].Quantity)
	assert.Equal(t, 2.0, items[2].Quantity)
	assert.Equal(t, model.DefaultQuantity, items[3].Quantity)
	assert.Equal(t, model.MinQuantity, items[4].Quantity)
	assert.Equal(t, model.DefaultQuantity, items[5].Quantity)

	assert.Contains(t, logs.String(), "unreadable quantity")
	assert.Contains(t, logs.String(), "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c04")
}

func TestDecodeDefaultsForMissingFields(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	data := []byte(`[{
		"id": "6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01",
		"name": "  Bare  ",
		"items": [
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01", "name": "Bread"},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c02", "name": "Jam", "unit": "  ", "sortOrder": 7}
		]
	}]`)

	lists, err := Decode(data, discardLogger())
	require.NoError(t, err)
	l := lists[0]

	assert.Equal(t, "Bare", l.Name)
	assert.Equal(t, model.ListTypeShopping, l.Type)
	assert.True(t, l.CreatedAt.After(before))
	assert.True(t, l.ModifiedAt.After(before))

	require.Len(t, l.Items, 2)
	for i, it := range l.Items {
		assert.False(t, it.IsChecked)
		assert.Nil(t, it.CheckedAt)
		assert.Nil(t, it.Price)
		assert.Empty(t, it.Unit)
		assert.Empty(t, it.Category)
		assert.Equal(t, i, it.SortOrder, "sort order renumbered by position")
	}
}

func TestDecodeListType(t *testing.T) {
	tests := []struct {
		raw  string
		want model.ListType
	}{
		{`"task"`, model.ListTypeTask},
		{`"Shopping"`, model.ListTypeShopping},
		{`"wishlist"`, model.ListTypeShopping},
		{`42`, model.ListTypeShopping},
		{`null`, model.ListTypeShopping},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			data := []byte(`[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x","items":[],"listType":` + tt.raw + `}]`)
			lists, err := Decode(data, discardLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, lists[0].Type)
		})
	}
}

func TestDecodeCheckedTimestamps(t *testing.T) {
	data := []byte(`[{
		"id": "6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01",
		"name": "Groceries",
		"createdAt": "2026-01-02T10:00:00Z",
		"items": [
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01", "name": "A", "isChecked": true, "checkedTimestamp": "2026-01-03T08:30:00+01:00"},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c02", "name": "B", "isChecked": true},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c03", "name": "C", "isChecked": true, "checkedTimestamp": 1767225600},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c04", "name": "D", "isChecked": false, "checkedTimestamp": "2026-01-03T08:30:00Z"},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c05", "name": "E", "isChecked": "yes"}
		]
	}]`)

	lists, err := Decode(data, discardLogger())
	require.NoError(t, err)
	items := lists[0].Items

	require.NotNil(t, items[0].CheckedAt)
	assert.Equal(t, time.Date(2026, 1, 3, 7, 30, 0, 0, time.UTC), *items[0].CheckedAt)

	require.NotNil(t, items[1].CheckedAt)
	assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), *items[1].CheckedAt)

	require.NotNil(t, items[2].CheckedAt)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *items[2].CheckedAt)

	assert.False(t, items[3].IsChecked)
	assert.Nil(t, items[3].CheckedAt)

	assert.False(t, items[4].IsChecked)
}

func TestDecodePrice(t *testing.T) {
	data := []byte(`[{
		"id": "6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01",
		"name": "Groceries",
		"items": [
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01", "name": "A", "price": 1.5},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c02", "name": "B", "price": "2.25"},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c03", "name": "C", "price": -4},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c04", "name": "D", "price": "cheap"},
			{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c05", "name": "E", "price": null}
		]
	}]`)

	lists, err := Decode(data, discardLogger())
	require.NoError(t, err)
	items := lists[0].Items

	require.NotNil(t, items[0].Price)
	assert.True(t, dec("1.5").Equal(*items[0].Price))
	require.NotNil(t, items[1].Price)
	assert.True(t, dec("2.25").Equal(*items[1].Price))
	assert.Nil(t, items[2].Price)
	assert.Nil(t, items[3].Price)
	assert.Nil(t, items[4].Price)
}

func TestDecodeFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"object instead of array", `{"lists": []}`},
		{"list is not an object", `[1]`},
		{"list missing id", `[{"name":"x","items":[]}]`},
		{"list malformed id", `[{"id":"nope","name":"x","items":[]}]`},
		{"list missing name", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","items":[]}]`},
		{"list name not string", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":5,"items":[]}]`},
		{"items not array", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x","items":{}}]`},
		{"item missing id", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x","items":[{"name":"a"}]}]`},
		{"item missing name", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x","items":[{"id":"0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01"}]}]`},
		{"duplicate list id", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x"},{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"y"}]`},
		{"list name blank", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"   ","items":[]}]`},
		{"item name blank", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x","items":[{"id":"0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01","name":" \t "}]}]`},
		{"duplicate item id", `[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"x","items":[{"id":"0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01","name":"a"},{"id":"0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01","name":"b"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), discardLogger())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptArtifact)
		})
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	data := []byte(`[{
		"id": "6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01",
		"name": "Future",
		"color": "blue",
		"items": [{"id": "0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01", "name": "A", "priority": 3}]
	}]`)

	lists, err := Decode(data, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "Future", lists[0].Name)
	assert.Len(t, lists[0].Items, 1)
}

func TestEncodeDecodeSingleList(t *testing.T) {
	l := sampleLists(t)[0]

	data, err := EncodeList(l)
	require.NoError(t, err)

	got, err := DecodeList(data, nil)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Len(t, got.Items, len(l.Items))
	assert.True(t, l.TotalPrice().Equal(got.TotalPrice()))
}

func TestDecodeOutOfRangeTimestamps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"huge unix seconds", `1e15`},
		{"beyond int64", `1e300`},
		{"negative unix seconds", `-1e15`},
		{"offset pushes year below zero", `"0000-01-01T00:00:00+01:00"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"Groceries","createdAt":` + tt.raw +
				`,"modifiedAt":` + tt.raw +
				`,"items":[{"id":"0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01","name":"Milk","isChecked":true,"checkedTimestamp":` + tt.raw + `}]}]`)

			before := time.Now().UTC().Add(-time.Minute)
			lists, err := Decode(data, discardLogger())
			require.NoError(t, err)
			require.Len(t, lists, 1)
			assert.True(t, lists[0].CreatedAt.After(before), "out-of-range createdAt falls back to now")
			require.NotNil(t, lists[0].Items[0].CheckedAt)
			assert.Equal(t, lists[0].CreatedAt, *lists[0].Items[0].CheckedAt)

			_, err = Encode(lists)
			assert.NoError(t, err)
		})
	}
}

func TestDecodedArtifactsEncode(t *testing.T) {
	inputs := []string{
		`[]`,
		`[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"A","createdAt":253402300799,"modifiedAt":"9999-12-31T23:59:59Z"}]`,
		`[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":"A","createdAt":-62167219200,"listType":"task"}]`,
		`[{"id":"6f1c1f9e-4b7a-4d4c-9a57-0a7d1f7f6b01","name":" B ","items":[{"id":"0b5d2f5e-5e0a-4c61-8d6b-2b4a1d9f7c01","name":"x","quantity":1e308,"price":"1e40","isChecked":true,"checkedTimestamp":1.5}]}]`,
	}
	for _, in := range inputs {
		lists, err := Decode([]byte(in), discardLogger())
		require.NoError(t, err, in)

		out, err := Encode(lists)
		require.NoError(t, err, in)
		again, err := Decode(out, discardLogger())
		require.NoError(t, err, in)
		assert.Len(t, again, len(lists))
	}
}
