// Package session owns the in-memory list collection for a running
// process. All reads and mutations run on one goroutine, in submission
// order, and a mutation that reports a change is saved before its caller
// is answered.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/listkeeper/internal/collection"
	"github.com/dukerupert/listkeeper/internal/model"
	"github.com/dukerupert/listkeeper/internal/store"
	"github.com/dukerupert/listkeeper/internal/suggest"
)

var (
	ErrClosed              = errors.New("session closed")
	ErrSuggestionsDisabled = errors.New("suggestions not configured")
)

// Suggester turns free text into item suggestions.
type Suggester interface {
	Parse(ctx context.Context, text string, listType model.ListType) ([]suggest.Suggestion, error)
}

// SuggestionFunc is told how a background suggestion request ended.
// err is nil on success; added may be zero if the list vanished meanwhile.
type SuggestionFunc func(listID uuid.UUID, added int, err error)

type command struct {
	fn   func(*collection.Collection) bool
	done chan error
}

type Session struct {
	coll      *collection.Collection
	files     *store.FileStore
	suggester Suggester
	logger    *slog.Logger

	cmds    chan command
	life    context.Context
	stop    context.CancelFunc
	pending sync.WaitGroup

	loadErr       error
	onSuggestions []SuggestionFunc
	// suggestTimeout bounds one background parse call.
	suggestTimeout time.Duration
}

// New loads the collection from files. A load failure is logged and kept
// for LoadErr; the session then starts empty and the unreadable file stays
// on disk until the first save. suggester may be nil.
func New(files *store.FileStore, suggester Suggester, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")

	lists, err := files.Load()
	if err != nil {
		logger.Error("could not load lists, starting empty", "path", files.Path(), "error", err)
		lists = nil
	} else {
		logger.Info("lists loaded", "path", files.Path(), "count", len(lists))
	}

	life, stop := context.WithCancel(context.Background())
	return &Session{
		coll:           collection.New(lists),
		files:          files,
		suggester:      suggester,
		logger:         logger,
		cmds:           make(chan command),
		life:           life,
		stop:           stop,
		loadErr:        err,
		suggestTimeout: 30 * time.Second,
	}
}

// LoadErr is the error from the initial load, if any.
func (s *Session) LoadErr() error { return s.loadErr }

// Subscribe registers a change observer. Call it before Run; observers run
// on the session goroutine.
func (s *Session) Subscribe(fn collection.Observer) { s.coll.Subscribe(fn) }

// OnSuggestions registers fn for finished suggestion requests. Call it
// before Run.
func (s *Session) OnSuggestions(fn SuggestionFunc) {
	s.onSuggestions = append(s.onSuggestions, fn)
}

// Run executes submitted commands until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.cmds:
			var err error
			if cmd.fn(s.coll) {
				err = s.save()
			}
			cmd.done <- err
		}
	}
}

func (s *Session) save() error {
	if err := s.files.Save(s.coll.Lists()); err != nil {
		s.logger.Error("save failed", "path", s.files.Path(), "error", err)
		return fmt.Errorf("save lists: %w", err)
	}
	return nil
}

// Do runs fn on the session goroutine. fn returns true when it changed the
// content; the collection is then saved and any save error returned.
func (s *Session) Do(ctx context.Context, fn func(*collection.Collection) bool) error {
	if s.life.Err() != nil {
		return ErrClosed
	}
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.life.Done():
		return ErrClosed
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View runs fn on the session goroutine without saving.
func (s *Session) View(ctx context.Context, fn func(*collection.Collection)) error {
	return s.Do(ctx, func(c *collection.Collection) bool {
		fn(c)
		return false
	})
}

// Snapshot encodes the current collection. It returns the bytes and the
// number of lists they hold.
func (s *Session) Snapshot(ctx context.Context) ([]byte, int, error) {
	var (
		data []byte
		n    int
		err  error
	)
	if verr := s.View(ctx, func(c *collection.Collection) {
		n = c.Len()
		data, err = store.Encode(c.Lists())
	}); verr != nil {
		return nil, 0, verr
	}
	return data, n, err
}

// Restore replaces the stored artifact and the in-memory collection with
// data. Data that does not decode changes nothing.
func (s *Session) Restore(ctx context.Context, data []byte) (int, error) {
	var (
		n   int
		err error
	)
	if derr := s.Do(ctx, func(c *collection.Collection) bool {
		var lists []*model.List
		lists, err = s.files.Replace(data)
		if err != nil {
			return false
		}
		c.Replace(lists)
		n = len(lists)
		return false
	}); derr != nil {
		return 0, derr
	}
	if err != nil {
		return 0, err
	}
	s.logger.Info("lists restored", "count", n)
	return n, nil
}

// SubmitSuggestions asks the suggester to parse text for the given list in
// the background. On success the suggestions are added to the list as it
// is at that moment; on failure nothing changes.
func (s *Session) SubmitSuggestions(ctx context.Context, listID uuid.UUID, text string) error {
	if s.suggester == nil {
		return ErrSuggestionsDisabled
	}

	var (
		listType model.ListType
		err      error
	)
	if verr := s.View(ctx, func(c *collection.Collection) {
		var l *model.List
		if l, err = c.List(listID); err == nil {
			listType = l.Type
		}
	}); verr != nil {
		return verr
	}
	if err != nil {
		return err
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		added, err := s.applySuggestions(listID, listType, text)
		for _, fn := range s.onSuggestions {
			fn(listID, added, err)
		}
	}()
	return nil
}

func (s *Session) applySuggestions(listID uuid.UUID, listType model.ListType, text string) (int, error) {
	ctx, cancel := context.WithTimeout(s.life, s.suggestTimeout)
	defer cancel()

	suggestions, err := s.suggester.Parse(ctx, text, listType)
	if err != nil {
		s.logger.Warn("suggestions failed, nothing added", "list_id", listID, "error", err)
		return 0, err
	}

	drafts := suggest.ToDrafts(suggestions)
	var added int
	err = s.Do(s.life, func(c *collection.Collection) bool {
		added = c.AddItems(listID, drafts)
		return added > 0
	})
	if err != nil {
		return added, err
	}
	s.logger.Info("suggestions applied", "list_id", listID, "suggested", len(drafts), "added", added)
	return added, nil
}

// WaitPending blocks until every background suggestion request has
// finished.
func (s *Session) WaitPending() { s.pending.Wait() }
