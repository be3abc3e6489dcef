package cacher

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCacher(t *testing.T) (*RedisCacher[snapshot], *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCacher[snapshot](client, "test:"), mr, client
}

func TestRedisCacher_GetOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("miss calls fetch once and stores json", func(t *testing.T) {
		c, mr, _ := newTestRedisCacher(t)
		calls := 0
		fetch := func(context.Context) (snapshot, error) {
			calls++
			return snapshot{Identity: "gordon", Count: 3}, nil
		}

		v, err := c.GetOrFetch(ctx, "session:gordon", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "gordon", v.Identity)

		v, err = c.GetOrFetch(ctx, "session:gordon", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), v.Count)
		assert.Equal(t, 1, calls)

		raw, err := mr.Get("test:session:gordon")
		require.NoError(t, err)
		assert.JSONEq(t, `{"Identity":"gordon","Count":3}`, raw)
		assert.Equal(t, time.Minute, mr.TTL("test:session:gordon"))
	})

	t.Run("fetch error is returned and not stored", func(t *testing.T) {
		c, mr, _ := newTestRedisCacher(t)

		_, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (snapshot, error) {
			return snapshot{}, assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, mr.Exists("test:k"))
	})

	t.Run("expired entry is fetched again", func(t *testing.T) {
		c, mr, _ := newTestRedisCacher(t)
		calls := 0
		fetch := func(context.Context) (snapshot, error) {
			calls++
			return snapshot{Count: uint64(calls)}, nil
		}

		_, err := c.GetOrFetch(ctx, "k", time.Second, fetch)
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)

		v, err := c.GetOrFetch(ctx, "k", time.Second, fetch)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v.Count)
	})
}

func TestRedisCacher_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr, _ := newTestRedisCacher(t)

	require.NoError(t, c.Set(ctx, "session:alyx", snapshot{Identity: "alyx", Count: 1}, time.Minute))

	v, found, err := c.Get(ctx, "session:alyx")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alyx", v.Identity)

	require.NoError(t, c.Delete(ctx, "session:alyx"))
	require.NoError(t, c.Delete(ctx, "missing"))

	_, found, err = c.Get(ctx, "session:alyx")
	require.NoError(t, err)
	assert.False(t, found)

	t.Run("undecodable value is an error", func(t *testing.T) {
		require.NoError(t, mr.Set("test:broken", "not json"))
		_, _, err := c.Get(ctx, "broken")
		assert.Error(t, err)
	})

	t.Run("backend failure is an error", func(t *testing.T) {
		mr.SetError("ERR backend down")
		defer mr.SetError("")

		_, _, err := c.Get(ctx, "session:alyx")
		assert.Error(t, err)
		assert.Error(t, c.Set(ctx, "session:alyx", snapshot{}, time.Minute))
	})
}

func TestRedisCacher_ItemCount(t *testing.T) {
	ctx := context.Background()
	c, mr, client := newTestRedisCacher(t)

	for _, k := range []string{"session:a", "session:b"} {
		require.NoError(t, c.Set(ctx, k, snapshot{}, time.Minute))
	}
	require.NoError(t, client.Set(ctx, "other:c", "1", 0).Err())

	n, err := c.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("other:c"))
}

func TestRedisCacher_SharedBetweenInstances(t *testing.T) {
	ctx := context.Background()
	first, _, client := newTestRedisCacher(t)
	second := NewRedisCacher[snapshot](client, "test:")

	require.NoError(t, first.Set(ctx, "session:eli", snapshot{Identity: "eli"}, time.Minute))

	v, err := second.GetOrFetch(ctx, "session:eli", time.Minute, func(context.Context) (snapshot, error) {
		t.Fatal("fetch must not run for a key another instance stored")
		return snapshot{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "eli", v.Identity)
}
