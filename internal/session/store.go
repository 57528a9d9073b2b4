// Package session provides the concurrency-safe per-user stores used by the
// dialog engine: the session registry itself and its scoped sub-caches
// (calculator amounts, agreement candidates). All state lives in process
// memory; entries must be removed on every terminal path so nothing leaks
// onto the next conversation.
package session

import "sync"

// Store is a keyed concurrent store with at most one entry per user.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[int64]T
}

// NewStore constructs an empty Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[int64]T)}
}

// Get returns the entry for userID if present.
func (s *Store[T]) Get(userID int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[userID]
	return v, ok
}

// Put installs or replaces the entry for userID. Two concurrent writers for
// the same user resolve last-write-wins; the engine assumes at most one
// in-flight operation per user.
func (s *Store[T]) Put(userID int64, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = value
}

// Delete removes the entry for userID if present.
func (s *Store[T]) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Contains reports whether an entry is registered for userID.
func (s *Store[T]) Contains(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[userID]
	return ok
}

// Len returns the number of registered entries.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
