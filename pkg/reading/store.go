package reading

import "sync"

// Store owns the shared reading. Replace swaps the whole value under the
// write lock, so Snapshot never observes a temperature from one update
// paired with a humidity from another.
type Store struct {
	mu      sync.RWMutex
	current Reading
}

// NewStore creates a store holding the given initial reading.
func NewStore(initial Reading) *Store {
	return &Store{current: initial}
}

// Snapshot returns a copy of the current reading.
func (s *Store) Snapshot() Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace sets the current reading.
func (s *Store) Replace(r Reading) {
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()
}
