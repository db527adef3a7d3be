package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a key/value backend for cache entries. Stores do not decide
// expiry; the Manager checks entry age on every read.
type Store interface {
	// Name identifies the backend in metrics and logs.
	Name() string

	// Load returns the entry for key or ErrCacheMiss.
	Load(ctx context.Context, key string) (*Entry, error)

	// Save stores entry under key, replacing any previous entry. ttl is a
	// hint for backends that can expire keys on their own.
	Save(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteIfStoredAt removes the entry for key only if it is still the
	// entry stored at storedAt, as one atomic step. It reports whether an
	// entry was removed.
	DeleteIfStoredAt(ctx context.Context, key string, storedAt time.Time) (bool, error)
}

// MemoryStore keeps entries in a process-local map. Entries are never swept
// in the background.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key string, entry *Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// DeleteIfStoredAt implements Store.
func (s *MemoryStore) DeleteIfStoredAt(_ context.Context, key string, storedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !entry.StoredAt.Equal(storedAt) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
