// Package suggest talks to the item-parsing service, which turns free text
// such as "2kg flour, milk and a dozen eggs" into item suggestions.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/listkeeper/internal/model"
)

// Kind classifies a failed call.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindDecoding   Kind = "decoding"
	KindServer     Kind = "server"
	KindModeration Kind = "moderation"
)

// Error is returned for every failed call. Match it with errors.As.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("suggest: %s error (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("suggest: %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Suggestion is one parsed item. Quantity is nil and Unit empty when the
// text did not state them.
type Suggestion struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

type parseRequest struct {
	Text     string `json:"text"`
	ListType string `json:"listType"`
}

type parseResponse struct {
	Items   []Suggestion `json:"items"`
	Flagged bool         `json:"flagged"`
	Reason  string       `json:"reason,omitempty"`
}

// Client calls the parsing service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
	retryDelay time.Duration
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("component", "suggest"),
		retryDelay: 500 * time.Millisecond,
	}
}

// Parse sends text with a list type hint and returns the suggestions.
// Suggestions with blank names are dropped.
func (c *Client) Parse(ctx context.Context, text string, listType model.ListType) ([]Suggestion, error) {
	body, err := json.Marshal(parseRequest{Text: text, ListType: listType.String()})
	if err != nil {
		return nil, &Error{Kind: KindDecoding, Err: err}
	}

	c.log.DebugContext(ctx, "parse request", slog.Int("text_len", len(text)), slog.String("list_type", listType.String()))

	resp, err := c.doWithRetry(ctx, body)
	if err != nil {
		c.log.ErrorContext(ctx, "parse request failed", slog.String("error", err.Error()))
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return nil, &Error{Kind: KindModeration, Status: resp.StatusCode, Err: fmt.Errorf("content blocked")}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{Kind: KindServer, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(raw)))}
	}

	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{Kind: KindDecoding, Status: resp.StatusCode, Err: err}
	}
	if parsed.Flagged {
		reason := parsed.Reason
		if reason == "" {
			reason = "content blocked"
		}
		return nil, &Error{Kind: KindModeration, Status: resp.StatusCode, Err: fmt.Errorf("%s", reason)}
	}

	out := make([]Suggestion, 0, len(parsed.Items))
	for _, s := range parsed.Items {
		if name, ok := model.CleanName(s.Name); ok {
			s.Name = name
			out = append(out, s)
		}
	}

	c.log.DebugContext(ctx, "parse response", slog.Int("status", resp.StatusCode), slog.Int("items", len(out)))
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (c *Client) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WarnContext(ctx, "parse retry", slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}

	req, err = c.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// ToDrafts turns suggestions into add-item requests. A missing quantity
// becomes model.DefaultQuantity.
func ToDrafts(suggestions []Suggestion) []model.ItemDraft {
	drafts := make([]model.ItemDraft, 0, len(suggestions))
	for _, s := range suggestions {
		q := model.DefaultQuantity
		if s.Quantity != nil {
			q = *s.Quantity
		}
		drafts = append(drafts, model.ItemDraft{Name: s.Name, Quantity: q, Unit: s.Unit})
	}
	return drafts
}
