package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dukerupert/listkeeper/internal/collection"
)

const maxSuggestionText = 2000

type suggestionRequest struct {
	Text string `json:"text"`
}

// Suggest hands free text to the parsing service in the background. The
// outcome arrives later as a websocket message; failures add nothing.
func (h *ListHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	listID, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req suggestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > maxSuggestionText {
		writeError(w, http.StatusRequestEntityTooLarge, "text is too long")
		return
	}

	err = h.sess.SubmitSuggestions(r.Context(), listID, req.Text)
	if errors.Is(err, collection.ErrListNotFound) {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	if err != nil {
		writeSessionError(w, h.logger, "submit suggestions", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
