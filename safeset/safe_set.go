// Package safeset provides a generic set guarded by a mutex. The
// game server uses it to track which identities are currently claimed by a
// live connection.
package safeset

import "sync"

// SafeSet is a set of unique comparable elements, safe for concurrent use.
type SafeSet[T comparable] struct {
	m map[T]struct{}
	sync.Mutex
}

// NewSafeSet creates and returns a new empty SafeSet.
func NewSafeSet[T comparable]() *SafeSet[T] {
	return &SafeSet[T]{m: make(map[T]struct{})}
}

// TryAdd adds value only if it is not already present. The check and the
// insert happen under one lock, so exactly one of several concurrent callers
// with the same value succeeds.
//
// Parameters:
//   - value: The element to claim
//
// Returns:
//   - true if value was added, false if it was already present
func (s *SafeSet[T]) TryAdd(value T) bool {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.m[value]; ok {
		return false
	}

	s.m[value] = struct{}{}
	return true
}

// Remove removes an element from the set. Removing a missing element is a
// no-op.
//
// Parameters:
//   - value: The element to remove
func (s *SafeSet[T]) Remove(value T) {
	s.Lock()
	defer s.Unlock()
	delete(s.m, value)
}
