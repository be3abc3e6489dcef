// Package directory answers "which session holds this identity" across
// connections and, with a shared Redis backend, across server processes.
// Active sessions are published into the cache by the dispatcher; misses
// fall back to the local registry. HELLO consults it before an identity is
// claimed.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/gamesession/cacher"
	"github.com/cyberinferno/gamesession/registry"
	"github.com/cyberinferno/gamesession/session"
)

var ErrNotFound = errors.New("directory: identity not found")

// DefaultTTL is used when New is given a non-positive ttl. It outlasts the
// server's default read timeout, so a published claim does not expire while
// its connection is still allowed to be idle.
const DefaultTTL = 3 * time.Minute

// Directory maps identities to session snapshots. Writes go through
// Publish and Release; Lookup reads the cache and fills misses from the
// registry.
type Directory struct {
	reg    *registry.Registry
	cache  cacher.Cacher[session.Session]
	ttl    time.Duration
	prefix string

	// gen counts Publish and Release calls. A fill that raced with either
	// is dropped from the cache.
	gen atomic.Uint64
}

// New creates a Directory.
//
// Parameters:
//   - reg: The local registry, read on a cache miss
//   - cache: Backend holding snapshots; a Redis backend shares them between processes
//   - ttl: Lifetime of a published or filled snapshot
//   - prefix: Prepended to every cache key, e.g. "session:"
//
// Returns:
//   - A new Directory
func New(reg *registry.Registry, cache cacher.Cacher[session.Session], ttl time.Duration, prefix string) *Directory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Directory{reg: reg, cache: cache, ttl: ttl, prefix: prefix}
}

// Lookup returns the session snapshot bound to identity. A miss is never
// cached, so an identity that logs in is visible on the next call.
//
// Returns:
//   - The snapshot, possibly up to ttl old
//   - ErrNotFound if neither the cache nor the registry has the identity, or a cache error
func (d *Directory) Lookup(ctx context.Context, identity string) (session.Session, error) {
	key := d.key(identity)
	gen := d.gen.Load()
	filled := false

	s, err := d.cache.GetOrFetch(ctx, key, d.ttl, func(context.Context) (session.Session, error) {
		s, ok := d.reg.Lookup(identity)
		if !ok {
			return session.Session{}, fmt.Errorf("%w: %q", ErrNotFound, identity)
		}

		filled = true
		return s, nil
	})
	if err != nil {
		return session.Session{}, err
	}

	// The registry read may predate a Publish or Release that has already
	// written the cache; the filled copy must not outlive it.
	if filled && d.gen.Load() != gen {
		if err := d.cache.Delete(ctx, key); err != nil {
			return session.Session{}, err
		}
	}

	return s, nil
}

// Publish records the current state of s. An Active session is written to
// the cache; any other state is handed to Release. Sessions without an
// identity are ignored.
func (d *Directory) Publish(ctx context.Context, s session.Session) error {
	if !s.HasIdentity {
		return nil
	}

	if s.State != session.Active {
		return d.Release(ctx, s)
	}

	d.gen.Add(1)
	return d.cache.Set(ctx, d.key(s.Identity), s, d.ttl)
}

// Release drops the cached snapshot for s's identity unless it belongs to
// another Active session, so a connection that said BYE or went away
// cannot erase the claim of the one that took the identity over.
func (d *Directory) Release(ctx context.Context, s session.Session) error {
	if !s.HasIdentity {
		return nil
	}

	d.gen.Add(1)
	key := d.key(s.Identity)

	cached, found, err := d.cache.Get(ctx, key)
	if err != nil {
		return err
	}

	if found && cached.Handle != s.Handle && cached.State == session.Active {
		return nil
	}

	return d.cache.Delete(ctx, key)
}

// Len returns the number of snapshots held by the cache backend.
func (d *Directory) Len(ctx context.Context) (int, error) {
	return d.cache.ItemCount(ctx)
}

func (d *Directory) key(identity string) string {
	return d.prefix + identity
}
