package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](Config{Capacity: 10})

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_LRUEviction(t *testing.T) {
	c := New[string, int](Config{Capacity: 3})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Inserting a fourth key evicts exactly the least-recently-used one.
	c.Set("d", 4)
	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := New[string, int](Config{Capacity: 3})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)
	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
}

func TestCache_CapacityInvariant(t *testing.T) {
	c := New[int, int](Config{Capacity: 5})

	for i := 0; i < 100; i++ {
		c.Set(i, i)
		assert.LessOrEqual(t, c.Len(), 5)
	}
	assert.Equal(t, int64(95), c.Stats().Evictions)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[string, int](Config{Capacity: 10, DefaultTTL: time.Hour})
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Minute)

	now = now.Add(2 * time.Minute)
	_, ok := c.Get("b")
	assert.False(t, ok, "entry read after expiresAt must be absent")
	assert.False(t, c.Has("b"))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCache_TTLOverride(t *testing.T) {
	c := New[string, int](Config{Capacity: 10, DefaultTTL: time.Minute})
	now := time.Now()
	c.now = func() time.Time { return now }

	c.SetWithTTL("long", 1, time.Hour)

	now = now.Add(30 * time.Minute)
	assert.True(t, c.Has("long"), "explicit TTL overrides the default")
}

func TestCache_NoTTL(t *testing.T) {
	c := New[string, int](Config{Capacity: 10})
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(1000 * time.Hour)
	assert.True(t, c.Has("a"))
}

func TestCache_DeleteAbsent(t *testing.T) {
	c := New[string, int](Config{Capacity: 10})

	c.Set("a", 1)
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.False(t, c.Delete("never-set"))
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](Config{Capacity: 10})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("a"))
}

func TestCache_Keys(t *testing.T) {
	c := New[string, int](Config{Capacity: 10})
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Minute)

	now = now.Add(2 * time.Minute)
	keys := c.Keys()
	assert.Equal(t, []string{"a"}, keys)
}

func TestCache_Sweep(t *testing.T) {
	c := New[string, int](Config{Capacity: 100})
	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		c.SetWithTTL(fmt.Sprintf("short-%d", i), i, time.Minute)
	}
	c.Set("keep", 42)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 10, c.Sweep())
	assert.Equal(t, 1, c.Len())

	// A second sweep with nothing new removes nothing.
	assert.Equal(t, 0, c.Sweep())
}

func TestCache_UpdateExistingKey(t *testing.T) {
	c := New[string, int](Config{Capacity: 2})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	// Updating in place must not evict.
	assert.Equal(t, 2, c.Len())
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	// "a" is now most recent, so "b" goes first.
	c.Set("c", 3)
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("a"))
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](Config{Capacity: 10})

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
