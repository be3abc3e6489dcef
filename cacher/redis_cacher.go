package cacher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var _ Cacher[int] = (*RedisCacher[int])(nil)

// RedisCacher is a Cacher that stores JSON-encoded values in Redis, so
// several server processes can share one view. Every key is stored under
// namespace, which keeps ItemCount from counting keys
// that belong to other users of the database.
type RedisCacher[T any] struct {
	client    redis.UniversalClient
	namespace string
	group     singleflight.Group
}

// NewRedisCacher creates a Redis-backed cache.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	c := NewRedisCacher[session.Session](client, "gamesession:")
//
// Parameters:
//   - client: A connected Redis client
//   - namespace: Prefix added to every key
//
// Returns:
//   - A new RedisCacher
func NewRedisCacher[T any](client redis.UniversalClient, namespace string) *RedisCacher[T] {
	return &RedisCacher[T]{client: client, namespace: namespace}
}

// GetOrFetch implements Cacher. Concurrent misses within this process share
// one fetch; misses in different processes may each fetch once.
func (c *RedisCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T

	v, found, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if found {
		return v, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetchFn(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.Set(ctx, key, v, ttl); err != nil {
			return nil, err
		}

		return v, nil
	})
	if err != nil {
		return zero, err
	}

	return val.(T), nil
}

// Set implements Cacher.
func (c *RedisCacher[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.namespace+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete implements Cacher.
func (c *RedisCacher[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.namespace+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}

	return nil
}

// ItemCount implements Cacher by counting the keys in the namespace with
// SCAN, so it does not block the server the way KEYS would.
func (c *RedisCacher[T]) ItemCount(ctx context.Context) (int, error) {
	keys, err := c.scan(ctx, c.namespace+"*")
	if err != nil {
		return 0, err
	}

	return len(keys), nil
}

// Get implements Cacher. A value that no longer decodes as T is an error.
func (c *RedisCacher[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	raw, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}

	return v, true, nil
}

func (c *RedisCacher[T]) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", match, err)
	}

	return keys, nil
}
