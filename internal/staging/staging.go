// Package staging holds download payloads between the moment a download is
// requested and the moment it has been handed to the client. A staged blob
// plays the role of a browser object URL: it is created, consumed once by
// the download trigger, then revoked.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open for unknown or revoked ids.
var ErrNotFound = errors.New("staged blob not found")

// Store keeps staged payloads as files under a single directory.
type Store struct {
	dir string

	mu    sync.Mutex
	blobs map[string]entry
}

type entry struct {
	name    string
	path    string
	size    int64
	created time.Time
}

// Blob is an open staged payload. The caller must Close it.
type Blob struct {
	*os.File
	ID      string
	Name    string
	Size    int64
	ModTime time.Time
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("staging dir is required")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Store{dir: dir, blobs: make(map[string]entry)}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Stage writes data under a new id. name is the file name the payload will
// be offered as; it is not used on disk.
func (s *Store) Stage(name string, data []byte) (string, error) {
	id := uuid.NewString()
	path := filepath.Join(s.dir, id)
	if err := AtomicWriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}

	s.mu.Lock()
	s.blobs[id] = entry{name: name, path: path, size: int64(len(data)), created: time.Now()}
	s.mu.Unlock()
	return id, nil
}

// Open returns the staged payload for id.
func (s *Store) Open(id string) (*Blob, error) {
	s.mu.Lock()
	e, ok := s.blobs[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	f, err := os.Open(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open staged blob: %w", err)
	}
	return &Blob{File: f, ID: id, Name: e.name, Size: e.size, ModTime: e.created}, nil
}

// Revoke forgets id and deletes its payload. Revoking an unknown id is a no-op.
func (s *Store) Revoke(id string) error {
	s.mu.Lock()
	e, ok := s.blobs[id]
	delete(s.blobs, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staged blob: %w", err)
	}
	return nil
}

// Len returns the number of staged, unrevoked blobs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// Close revokes everything still staged.
func (s *Store) Close() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := s.Revoke(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
