package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dukerupert/listkeeper/internal/backup"
	"github.com/dukerupert/listkeeper/internal/collection"
	"github.com/dukerupert/listkeeper/internal/suggest"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(quietLogger())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.register(c1)
	hub.register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	// A second unregister of the same client is a no-op.
	hub.unregister(c1)
	hub.unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestListChanged(t *testing.T) {
	hub := NewHub(quietLogger())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.register(c1)
	hub.register(c2)
	defer hub.unregister(c1)
	defer hub.unregister(c2)

	listID := uuid.New()
	itemID := uuid.New()
	hub.ListChanged(collection.Event{
		Entity: collection.EntityItem,
		Action: collection.ActionToggled,
		ListID: listID,
		ItemID: itemID,
	})

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != "item_toggled" {
			t.Errorf("expected type item_toggled, got %s", got.Type)
		}
		if got.ItemID != itemID.String() {
			t.Errorf("expected item_id %s, got %s", itemID, got.ItemID)
		}
		if got.ListID != listID.String() {
			t.Errorf("expected list_id %s, got %s", listID, got.ListID)
		}
	}
}

func TestListChangedOmitsUnsetIDs(t *testing.T) {
	listID := uuid.New()

	tests := []struct {
		name     string
		ev       collection.Event
		wantType string
		wantList string
	}{
		{"list created", collection.Event{Entity: collection.EntityList, Action: collection.ActionCreated, ListID: listID}, "list_created", listID.String()},
		{"lists reordered", collection.Event{Entity: collection.EntityList, Action: collection.ActionReordered}, "list_reordered", ""},
		{"items cleared", collection.Event{Entity: collection.EntityItem, Action: collection.ActionCleared, ListID: listID}, "item_cleared", listID.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(quietLogger())
			c := mockClient(hub)
			hub.register(c)
			defer hub.unregister(c)

			hub.ListChanged(tt.ev)
			msg := receive(t, c)
			if msg.Type != tt.wantType {
				t.Errorf("type = %s, want %s", msg.Type, tt.wantType)
			}
			if msg.ListID != tt.wantList {
				t.Errorf("list_id = %q, want %q", msg.ListID, tt.wantList)
			}
			if msg.ItemID != "" {
				t.Errorf("item_id = %q, want empty", msg.ItemID)
			}
		})
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(quietLogger())
	hub.ListChanged(collection.Event{Entity: collection.EntityList, Action: collection.ActionCreated, ListID: uuid.New()})
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(quietLogger())

	c := mockClient(hub)
	hub.register(c)
	defer hub.unregister(c)

	ev := collection.Event{Entity: collection.EntityList, Action: collection.ActionUpdated, ListID: uuid.New()}
	for i := 0; i < sendBufferSize; i++ {
		hub.ListChanged(ev)
	}
	// Dropped rather than blocking.
	hub.ListChanged(ev)

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected %d buffered messages, got %d", sendBufferSize, got)
	}
}

func TestBackupChanged(t *testing.T) {
	hub := NewHub(quietLogger())
	c := mockClient(hub)
	hub.register(c)
	defer hub.unregister(c)

	hub.BackupChanged(backup.Status{State: backup.StateError, Error: "upload failed"})
	msg := receive(t, c)
	if msg.Type != "backup_error" {
		t.Errorf("expected type backup_error, got %s", msg.Type)
	}
	if msg.Extra["error"] != "upload failed" {
		t.Errorf("expected error in extra, got %v", msg.Extra)
	}
}

func TestSuggestionsDone(t *testing.T) {
	hub := NewHub(quietLogger())
	c := mockClient(hub)
	hub.register(c)
	defer hub.unregister(c)
	id := uuid.New()

	hub.SuggestionsDone(id, 3, nil)
	msg := receive(t, c)
	// JSON numbers decode as float64.
	if msg.Type != "suggestion_applied" || msg.Extra["added"] != 3.0 || msg.ListID != id.String() {
		t.Errorf("unexpected message %+v", msg)
	}

	hub.SuggestionsDone(id, 0, &suggest.Error{Kind: suggest.KindModeration, Err: errors.New("blocked")})
	msg = receive(t, c)
	if msg.Type != "suggestion_failed" {
		t.Errorf("expected suggestion_failed, got %s", msg.Type)
	}
	if msg.Extra["kind"] != "moderation" {
		t.Errorf("expected kind moderation, got %v", msg.Extra["kind"])
	}
}

func TestServeHTTPDeliversNotifications(t *testing.T) {
	hub := NewHub(quietLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	listID := uuid.New()
	hub.ListChanged(collection.Event{Entity: collection.EntityList, Action: collection.ActionDeleted, ListID: listID})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "list_deleted" || msg.ListID != listID.String() {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestServeHTTPRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(quietLogger(), "lists.example.com")
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := &ws.DialOptions{HTTPHeader: map[string][]string{"Origin": {"https://evil.example.org"}}}
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), opts)
	if err == nil {
		conn.Close(ws.StatusNormalClosure, "")
		t.Fatal("expected dial from a foreign origin to fail")
	}
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients, got %d", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(quietLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.register(c)
			hub.ListChanged(collection.Event{Entity: collection.EntityList, Action: collection.ActionReordered})
			for {
				select {
				case <-c.send:
				default:
					hub.unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
