package history

import (
	"context"
	"sync"
)

// InMemoryStore is a volatile Store keeping entries in a process local slice.
// It is safe for concurrent access.
type InMemoryStore struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

// NewInMemoryStore constructs an empty store. A capacity <= 0 selects
// DefaultCapacity.
func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{capacity: capacity}
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, entries ...Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	if over := len(s.entries) - s.capacity; over > 0 {
		// Copy so the evicted prefix can be collected.
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
	return nil
}

// List implements Store.
func (s *InMemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && limit < len(s.entries) {
		start = len(s.entries) - limit
	}
	return append([]Entry(nil), s.entries[start:]...), nil
}

// Len implements Store.
func (s *InMemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
