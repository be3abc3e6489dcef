// Package registry keeps a copy of every connected session so that other
// goroutines can look sessions up by identity.
//
// The registry never shares memory with a connection's live session: callers
// push copies in at well-defined points and get copies back out. One lock
// guards the whole collection and is held only for the read-modify-write of
// the slice, never across I/O.
package registry

import (
	"sync"

	"github.com/cyberinferno/gamesession/session"
	"github.com/google/uuid"
)

// Registry is a concurrency-safe collection of session snapshots. Entries
// keep insertion order. Identity is not unique: Insert appends even when an
// entry with the same identity exists. Reconcile and Remove act on the first
// match; Lookup prefers the first Active match.
type Registry struct {
	mu      sync.RWMutex
	entries []session.Session
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Insert appends a copy of s. No uniqueness check is made.
//
// Parameters:
//   - s: The session to store, typically fresh from session.New
func (r *Registry) Insert(s session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, s)
}

// Reconcile replaces the first entry whose identity equals s's identity with
// a copy of s. It never inserts: if s has no identity or no entry matches,
// the registry is left unchanged.
//
// Returns:
//   - true if an entry was updated
func (r *Registry) Reconcile(s session.Session) bool {
	if !s.HasIdentity {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByIdentity(s.Identity)
	if i < 0 {
		return false
	}

	r.entries[i] = s
	return true
}

// Bind replaces the entry with the same Handle as s. It is how the entry
// inserted at connection time, which had no identity yet, picks up the
// identity of an accepted HELLO.
//
// Returns:
//   - true if an entry was updated
func (r *Registry) Bind(s session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByHandle(s.Handle)
	if i < 0 {
		return false
	}

	r.entries[i] = s
	return true
}

// Remove deletes the first entry whose identity equals s's identity. A
// session without identity, or one that is not stored, is a no-op.
//
// Returns:
//   - true if an entry was removed
func (r *Registry) Remove(s session.Session) bool {
	if !s.HasIdentity {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeAt(r.indexByIdentity(s.Identity))
}

// RemoveHandle deletes the entry for the connection handle h, whether or not
// it has an identity.
//
// Returns:
//   - true if an entry was removed
func (r *Registry) RemoveHandle(h uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeAt(r.indexByHandle(h))
}

// Lookup returns a copy of the entry holding identity. A session that said
// BYE keeps its identity, so several entries can share one; the first Active
// entry wins, and the first match is returned only when none is Active.
//
// Returns:
//   - The session and true if found, or a zero Session and false otherwise
func (r *Registry) Lookup(identity string) (session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	first := -1
	for i := range r.entries {
		if !r.entries[i].HasIdentity || r.entries[i].Identity != identity {
			continue
		}

		if r.entries[i].State == session.Active {
			return r.entries[i], true
		}

		if first < 0 {
			first = i
		}
	}

	if first < 0 {
		return session.Session{}, false
	}

	return r.entries[first], true
}

// Len returns the number of stored entries, including ones without identity.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of every entry in insertion order.
func (r *Registry) Snapshot() []session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]session.Session, len(r.entries))
	copy(out, r.entries)
	return out
}

// indexByIdentity returns the first entry index for identity, or -1. Caller
// must hold r.mu.
func (r *Registry) indexByIdentity(identity string) int {
	for i := range r.entries {
		if r.entries[i].HasIdentity && r.entries[i].Identity == identity {
			return i
		}
	}

	return -1
}

func (r *Registry) indexByHandle(h uuid.UUID) int {
	for i := range r.entries {
		if r.entries[i].Handle == h {
			return i
		}
	}

	return -1
}

func (r *Registry) removeAt(i int) bool {
	if i < 0 {
		return false
	}

	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return true
}
