// Package blobstore keeps in-memory binary blobs addressable by revocable
// object URLs, so rendered previews can be served back to the browser.
package blobstore

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// DefaultPrefix is prepended to the blob ID to form an object URL
const DefaultPrefix = "/blob/"

// ErrNotFound is returned for unknown or revoked blobs
var ErrNotFound = errors.New("blob not found")

// Blob is a registered chunk of bytes
type Blob struct {
	ID        ulid.ULID
	Type      string
	Data      []byte
	CreatedAt time.Time
}

// Store maps object URLs to blobs. The zero value is not usable, use New.
type Store struct {
	prefix string
	now    func() time.Time

	mu    sync.RWMutex
	blobs map[ulid.ULID]*Blob
}

// New creates a store whose URLs start with prefix
func New(prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		prefix: prefix,
		now:    time.Now,
		blobs:  make(map[ulid.ULID]*Blob),
	}
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide store using DefaultPrefix
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore = New(DefaultPrefix)
	})
	return defaultStore
}

// Prefix returns the URL prefix of this store
func (s *Store) Prefix() string {
	return s.prefix
}

// CreateObjectURL registers data and returns a URL referencing it. The caller
// owns the URL and should revoke it when done.
func (s *Store) CreateObjectURL(data []byte, mimeType string) string {
	blob := &Blob{
		ID:        ulid.Make(),
		Type:      mimeType,
		Data:      data,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.blobs[blob.ID] = blob
	s.mu.Unlock()

	return s.prefix + blob.ID.String()
}

// Get returns the blob registered under id
func (s *Store) Get(id string) (*Blob, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[parsed]
	if !ok {
		return nil, ErrNotFound
	}
	return blob, nil
}

// Resolve returns the blob referenced by an object URL
func (s *Store) Resolve(objectURL string) (*Blob, error) {
	id, ok := s.idFromURL(objectURL)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(id)
}

// RevokeObjectURL releases the blob behind objectURL. Revoking an unknown or
// already revoked URL is a no-op and reports false.
func (s *Store) RevokeObjectURL(objectURL string) bool {
	id, ok := s.idFromURL(objectURL)
	if !ok {
		return false
	}
	return s.Revoke(id)
}

// Revoke releases the blob with the given ID
func (s *Store) Revoke(id string) bool {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[parsed]; !ok {
		return false
	}
	delete(s.blobs, parsed)
	return true
}

// Sweep revokes every blob older than maxAge and returns how many went.
// A non-positive maxAge does nothing.
func (s *Store) Sweep(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, blob := range s.blobs {
		if blob.CreatedAt.Before(cutoff) {
			delete(s.blobs, id)
			removed++
		}
	}
	if removed > 0 && Logger != nil {
		Logger.Info("Swept expired blobs", "removed", removed, "remaining", len(s.blobs))
	}
	return removed
}

// Len returns the number of live blobs
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *Store) idFromURL(objectURL string) (string, bool) {
	if !strings.HasPrefix(objectURL, s.prefix) {
		return "", false
	}
	id := strings.TrimPrefix(objectURL, s.prefix)
	return id, id != ""
}
