package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/dukerupert/listkeeper/internal/collection"
	"github.com/dukerupert/listkeeper/internal/model"
	"github.com/dukerupert/listkeeper/internal/session"
	"github.com/dukerupert/listkeeper/internal/store"
)

// ListHandler serves lists and their items. Every call runs on the
// session goroutine; mutations that change something are saved before
// the response is written.
type ListHandler struct {
	sess   *session.Session
	logger *slog.Logger
}

func NewListHandler(sess *session.Session, logger *slog.Logger) *ListHandler {
	return &ListHandler{sess: sess, logger: logger}
}

type createListRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type renameListRequest struct {
	Name string `json:"name"`
}

type moveRequest struct {
	From []int `json:"from"`
	To   int   `json:"to"`
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []listSummary
	err := h.sess.View(r.Context(), func(c *collection.Collection) {
		out = make([]listSummary, 0, c.Len())
		for _, l := range c.Lists() {
			out = append(out, newListSummary(l))
		}
	})
	if err != nil {
		writeSessionError(w, h.logger, "list lists", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var (
		view  listView
		found bool
	)
	err = h.sess.View(r.Context(), func(c *collection.Collection) {
		l, err := c.List(id)
		if err != nil {
			return
		}
		found = true
		view = newListView(l)
	})
	if err != nil {
		writeSessionError(w, h.logger, "get list", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if _, ok := model.CleanName(req.Name); !ok {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	lt := model.DefaultListType
	if req.Type != "" {
		var ok bool
		if lt, ok = model.ParseListType(req.Type); !ok {
			writeError(w, http.StatusBadRequest, "unknown list type")
			return
		}
	}

	var view listView
	err := h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		l, ok := c.AddList(req.Name, lt)
		if !ok {
			return false
		}
		view = newListView(l)
		return true
	})
	if err != nil {
		writeSessionError(w, h.logger, "create list", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *ListHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, ok := model.CleanName(req.Name); !ok {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	h.mutate(w, r, "rename list", func(c *collection.Collection, l *model.List) bool {
		return c.RenameList(l.ID, req.Name)
	})
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var found bool
	err = h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		found = c.DeleteList(id)
		return found
	})
	if err != nil {
		writeSessionError(w, h.logger, "delete list", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder moves the lists at positions from before position to. Invalid
// positions are ignored; the response is always the resulting order.
func (h *ListHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var out []listSummary
	err := h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		changed := c.MoveLists(req.From, req.To)
		out = make([]listSummary, 0, c.Len())
		for _, l := range c.Lists() {
			out = append(out, newListSummary(l))
		}
		return changed
	})
	if err != nil {
		writeSessionError(w, h.logger, "reorder lists", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func exportFilename(name string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(name, "-"), "-.")
	if base == "" {
		base = "list"
	}
	return base + ".json"
}

// Export writes one list in the on-disk format as a file download.
func (h *ListHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var (
		data   []byte
		name   string
		found  bool
		encErr error
	)
	err = h.sess.View(r.Context(), func(c *collection.Collection) {
		l, err := c.List(id)
		if err != nil {
			return
		}
		found = true
		name = l.Name
		data, encErr = store.EncodeList(l)
	})
	if err == nil {
		err = encErr
	}
	if err != nil {
		writeSessionError(w, h.logger, "export list", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(name)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// mutate resolves the {id} list, runs fn against it on the session
// goroutine and responds with the list as it is afterwards.
func (h *ListHandler) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(*collection.Collection, *model.List) bool) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var (
		view  listView
		found bool
	)
	err = h.sess.Do(r.Context(), func(c *collection.Collection) bool {
		l, err := c.List(id)
		if err != nil {
			return false
		}
		found = true
		changed := fn(c, l)
		view = newListView(l)
		return changed
	})
	if err != nil {
		writeSessionError(w, h.logger, op, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
