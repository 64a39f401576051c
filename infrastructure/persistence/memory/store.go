// Package memory provides an in-process Store implementation used by the
// local dev server and by tests. It is disposable by design: nothing in it
// survives a process restart, which mirrors the serverless runtime's view
// of process memory.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a threadsafe in-memory key-value store with per-key TTL
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value for key if present and unexpired
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

// Put stores value under key with a fresh lifetime
func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	copied := make([]byte, len(value))
	copy(copied, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{value: copied, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Delete removes key if present
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Advance shifts the store's clock forward. Test helper for simulating
// window and TTL expiry without sleeping.
func (s *Store) Advance(d time.Duration) {
	s.mu.Lock()
	base := s.now
	s.now = func() time.Time { return base().Add(d) }
	s.mu.Unlock()
}

// Len reports the number of live entries, expired or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
