// Package websocket pushes change notifications to connected browsers.
// Nothing is read from clients; a notification only tells them what to
// refetch.
package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/listkeeper/internal/backup"
	"github.com/dukerupert/listkeeper/internal/collection"
	"github.com/dukerupert/listkeeper/internal/suggest"
)

// Message is one notification. Type is "<entity>_<action>". ListID and
// ItemID are set when the change concerns a particular list or item.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ListID string         `json:"list_id,omitempty"`
	ItemID string         `json:"item_id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func newMessage(entity, action string, listID, itemID uuid.UUID) Message {
	msg := Message{Type: entity + "_" + action, Entity: entity, Action: action}
	if listID != uuid.Nil {
		msg.ListID = listID.String()
	}
	if itemID != uuid.Nil {
		msg.ItemID = itemID.String()
	}
	return msg
}

// Hub tracks connected clients and fans notifications out to them. Its
// ListChanged, BackupChanged and SuggestionsDone methods are meant to be
// registered as callbacks with the session and the backup manager.
type Hub struct {
	mu             sync.RWMutex
	clients        map[*Client]struct{}
	originPatterns []string
	logger         *slog.Logger
}

// NewHub returns an empty hub. With no origin patterns any origin may
// connect.
func NewHub(logger *slog.Logger, originPatterns ...string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:        make(map[*Client]struct{}),
		originPatterns: originPatterns,
		logger:         logger.With("component", "websocket"),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// unregister closes the client's send channel. Repeated calls are no-ops.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", "clients", n)
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues msg for every client. A client whose buffer is full
// misses it.
func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal notification", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, notification dropped", "type", msg.Type)
		}
	}
}

// ListChanged announces a collection change.
func (h *Hub) ListChanged(ev collection.Event) {
	h.broadcast(newMessage(string(ev.Entity), string(ev.Action), ev.ListID, ev.ItemID))
}

// BackupChanged announces a backup manager state change.
func (h *Hub) BackupChanged(s backup.Status) {
	msg := newMessage("backup", string(s.State), uuid.Nil, uuid.Nil)
	msg.Extra = map[string]any{"in_progress": s.InProgress}
	if s.LastBackup != nil {
		msg.Extra["last_backup"] = s.LastBackup
	}
	if s.Error != "" {
		msg.Extra["error"] = s.Error
	}
	h.broadcast(msg)
}

// SuggestionsDone reports how a background suggestion request ended.
func (h *Hub) SuggestionsDone(listID uuid.UUID, added int, err error) {
	if err == nil {
		msg := newMessage("suggestion", "applied", listID, uuid.Nil)
		msg.Extra = map[string]any{"added": added}
		h.broadcast(msg)
		return
	}
	msg := newMessage("suggestion", "failed", listID, uuid.Nil)
	msg.Extra = map[string]any{"error": err.Error()}
	var se *suggest.Error
	if errors.As(err, &se) {
		msg.Extra["kind"] = string(se.Kind)
	}
	h.broadcast(msg)
}
