package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/listkeeper/internal/model"
	"github.com/dukerupert/listkeeper/internal/session"
	"github.com/dukerupert/listkeeper/internal/store"
	"github.com/dukerupert/listkeeper/internal/suggest"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type stubSuggester struct {
	result []suggest.Suggestion
}

func (s *stubSuggester) Parse(context.Context, string, model.ListType) ([]suggest.Suggestion, error) {
	return s.result, nil
}

func newTestHandler(t *testing.T, sg session.Suggester) (*ListHandler, *session.Session, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lists.json")
	sess := session.New(store.NewFileStore(path, quietLogger()), sg, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewListHandler(sess, quietLogger()), sess, path
}

// call invokes h with a JSON body and the given path values.
func call(t *testing.T, h http.HandlerFunc, method, target string, body any, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range params {
		req.SetPathValue(k, v)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func createList(t *testing.T, h *ListHandler, name, typ string) listView {
	t.Helper()
	rr := call(t, h.Create, http.MethodPost, "/api/lists", createListRequest{Name: name, Type: typ}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[listView](t, rr)
}

func addItem(t *testing.T, h *ListHandler, listID string, body string) itemView {
	t.Helper()
	rr := call(t, h.CreateItem, http.MethodPost, "/api/lists/"+listID+"/items", body, map[string]string{"id": listID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[itemView](t, rr)
}

func names(v listView) []string {
	out := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		out = append(out, it.Name)
	}
	return out
}
