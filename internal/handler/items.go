package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/listkeeper/internal/collection"
	"github.com/dukerupert/listkeeper/internal/model"
)

// itemRequest is the body for creating and replacing an item. Price
// accepts a JSON number or a numeric string.
type itemRequest struct {
	Name     string           `json:"name"`
	Quantity *float64         `json:"quantity"`
	Unit     string           `json:"unit"`
	Price    *decimal.Decimal `json:"price"`
}

func (req itemRequest) quantity() float64 {
	if req.Quantity == nil {
		return model.DefaultQuantity
	}
	return *req.Quantity
}

type deleteItemsRequest struct {
	Indices []int `json:"indices"`
}

type clearCheckedResponse struct {
	Removed int      `json:"removed"`
	List    listView `json:"list"`
}

func (h *ListHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	listID, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, ok := model.CleanName(req.Name); !ok {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var (
		view  itemView
		found bool
	)
	err = h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		l, err := c.List(listID)
		if err != nil {
			return false
		}
		found = true
		it, ok := c.AddItem(listID, req.Name, req.quantity(), req.Unit, req.Price)
		if !ok {
			return false
		}
		view = newItemView(it, l.Policy().SupportsPrice)
		return true
	})
	if err != nil {
		writeSessionError(w, h.logger, "create item", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// UpdateItem replaces an item's editable fields. A blank name keeps the
// current name; an omitted price, quantity or unit resets that field.
func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseUUIDParam(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item_id")
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h.mutateItem(w, r, "update item", itemID, func(c *collection.Collection, l *model.List) bool {
		return c.UpdateItem(l.ID, itemID, req.Name, req.Price, req.quantity(), req.Unit)
	})
}

func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseUUIDParam(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item_id")
		return
	}

	h.mutateItem(w, r, "toggle item", itemID, func(c *collection.Collection, l *model.List) bool {
		return c.ToggleItem(l.ID, itemID)
	})
}

// DeleteItems removes the items at the given positions. Positions out of
// range are ignored.
func (h *ListHandler) DeleteItems(w http.ResponseWriter, r *http.Request) {
	var req deleteItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h.mutate(w, r, "delete items", func(c *collection.Collection, l *model.List) bool {
		return c.DeleteItems(l.ID, req.Indices)
	})
}

func (h *ListHandler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h.mutate(w, r, "reorder items", func(c *collection.Collection, l *model.List) bool {
		return c.MoveItems(l.ID, req.From, req.To)
	})
}

func (h *ListHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	listID, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var (
		resp  clearCheckedResponse
		found bool
	)
	err = h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		l, err := c.List(listID)
		if err != nil {
			return false
		}
		found = true
		resp.Removed = c.ClearChecked(listID)
		resp.List = newListView(l)
		return resp.Removed > 0
	})
	if err != nil {
		writeSessionError(w, h.logger, "clear checked items", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// mutateItem is mutate for routes that address one item; an unknown item
// id is a 404.
func (h *ListHandler) mutateItem(w http.ResponseWriter, r *http.Request, op string, itemID uuid.UUID, fn func(*collection.Collection, *model.List) bool) {
	listID, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var (
		view      listView
		foundList bool
		foundItem bool
	)
	err = h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		l, err := c.List(listID)
		if err != nil {
			return false
		}
		foundList = true
		if l.IndexOf(itemID) < 0 {
			return false
		}
		foundItem = true
		changed := fn(c, l)
		view = newListView(l)
		return changed
	})
	switch {
	case err != nil:
		writeSessionError(w, h.logger, op, err)
	case !foundList:
		writeError(w, http.StatusNotFound, "list not found")
	case !foundItem:
		writeError(w, http.StatusNotFound, "item not found")
	default:
		writeJSON(w, http.StatusOK, view)
	}
}
