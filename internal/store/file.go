package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukerupert/listkeeper/internal/model"
)

const corruptStampFormat = "20060102T150405Z"

// FileStore persists the collection as one JSON file. Writes replace the
// file in a single rename, so readers see either the old or the new
// content.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
	// unreadable is set when the last Load failed to decode. The next
	// write copies the file aside before replacing it.
	unreadable bool
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the artifact. A missing file is an empty collection. A file
// that cannot be decoded returns an error wrapping ErrCorruptArtifact and
// is left on disk untouched.
func (s *FileStore) Load() ([]*model.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no list file yet, starting empty", "path", s.path)
		return []*model.List{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	lists, err := Decode(data, s.logger)
	if err != nil {
		s.unreadable = true
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	s.unreadable = false
	return lists, nil
}

// Save encodes the full collection and atomically replaces the artifact.
func (s *FileStore) Save(lists []*model.List) error {
	data, err := Encode(lists)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(data)
}

// Replace validates data as a collection artifact and, if it decodes,
// writes it in place of the current artifact. It returns the decoded
// lists so the caller can swap them in.
func (s *FileStore) Replace(data []byte) ([]*model.List, error) {
	lists, err := Decode(data, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(data); err != nil {
		return nil, err
	}
	return lists, nil
}

// ReadRaw returns the artifact bytes as stored. A missing file reads as an
// empty collection.
func (s *FileStore) ReadRaw() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Encode(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileStore) writeLocked(data []byte) error {
	if s.unreadable {
		kept, err := s.preserveLocked()
		if err != nil {
			return fmt.Errorf("preserve unreadable %s: %w", s.path, err)
		}
		s.logger.Warn("kept unreadable list file before overwriting", "path", s.path, "copy", kept)
		s.unreadable = false
	}
	if err := writeFileAtomicDurable(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) preserveLocked() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	dst := s.path + ".corrupt-" + time.Now().UTC().Format(corruptStampFormat)
	if err := writeFileAtomicDurable(dst, data, 0o600); err != nil {
		return "", err
	}
	return dst, nil
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
