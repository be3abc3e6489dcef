// Package cacher provides read-through caches with an in-memory backend
// (go-cache) and a Redis backend. Both collapse concurrent misses on the
// same key into a single fetch.
package cacher

import (
	"context"
	"time"
)

// FetchFunc loads a value from the source of truth on a cache miss. If it
// returns an error nothing is cached.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher caches values of type T by string key.
type Cacher[T any] interface {
	// GetOrFetch returns the cached value for key, or calls fetchFn, caches
	// its result for ttl and returns it. Concurrent misses on one key share a
	// single fetchFn call.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key
	//   - ttl: Time-to-live for a freshly fetched value
	//   - fetchFn: Loader called on a miss
	//
	// Returns:
	//   - The cached or fetched value
	//   - The error from fetchFn or from the backend
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Get returns the cached value for key without fetching.
	//
	// Returns:
	//   - The value and true on a hit, or the zero value and false on a miss
	//   - An error if the backend fails
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores value under key for ttl, replacing any cached value.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ItemCount returns the number of cached items.
	ItemCount(ctx context.Context) (int, error)
}
