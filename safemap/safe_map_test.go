package safemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     uint32
	closed bool
}

func collect[K comparable, V any](m *SafeMap[K, V]) map[K]V {
	out := make(map[K]V)
	m.Range(func(k K, v V) bool {
		out[k] = v
		return true
	})
	return out
}

func TestNewSafeMap(t *testing.T) {
	m := NewSafeMap[uint32, *fakeConn]()
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, collect(m))
}

func TestSafeMap_Store(t *testing.T) {
	m := NewSafeMap[uint32, *fakeConn]()

	t.Run("store adds entry", func(t *testing.T) {
		c := &fakeConn{id: 1}
		m.Store(1, c)
		assert.Same(t, c, collect(m)[1])
	})

	t.Run("overwrite replaces value", func(t *testing.T) {
		c := &fakeConn{id: 1}
		m.Store(1, c)
		assert.Same(t, c, collect(m)[1])
		assert.Equal(t, 1, m.Len())
	})
}

func TestSafeMap_LoadAndDelete(t *testing.T) {
	m := NewSafeMap[uint32, string]()
	m.Store(7, "seven")
	m.Store(8, "eight")

	t.Run("returns and removes present key", func(t *testing.T) {
		v, ok := m.LoadAndDelete(7)
		assert.True(t, ok)
		assert.Equal(t, "seven", v)
		assert.Equal(t, map[uint32]string{8: "eight"}, collect(m))
	})

	t.Run("second call reports absence", func(t *testing.T) {
		v, ok := m.LoadAndDelete(7)
		assert.False(t, ok)
		assert.Empty(t, v)
		assert.Equal(t, 1, m.Len())
	})
}

func TestSafeMap_Range(t *testing.T) {
	m := NewSafeMap[uint32, *fakeConn]()
	for i := uint32(1); i <= 3; i++ {
		m.Store(i, &fakeConn{id: i})
	}

	t.Run("iterates all entries", func(t *testing.T) {
		m.Range(func(k uint32, c *fakeConn) bool {
			c.closed = true
			return true
		})
		for k, c := range collect(m) {
			assert.Equal(t, k, c.id)
			assert.True(t, c.closed)
		}
	})

	t.Run("stops when f returns false", func(t *testing.T) {
		count := 0
		m.Range(func(uint32, *fakeConn) bool {
			count++
			return count < 2
		})
		assert.Equal(t, 2, count)
	})
}

func TestSafeMap_Concurrent(t *testing.T) {
	m := NewSafeMap[int, int]()
	const goroutines = 50
	const opsPerGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := range goroutines {
		go func(id int) {
			defer wg.Done()
			for i := range opsPerGoroutine {
				key := id*opsPerGoroutine + i
				m.Store(key, key)
				m.Len()
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, goroutines*opsPerGoroutine, m.Len())

	wg.Add(goroutines)
	for g := range goroutines {
		go func(id int) {
			defer wg.Done()
			for i := range opsPerGoroutine {
				key := id*opsPerGoroutine + i
				v, ok := m.LoadAndDelete(key)
				assert.True(t, ok)
				assert.Equal(t, key, v)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 0, m.Len())
}
