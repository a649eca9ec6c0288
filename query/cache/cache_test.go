package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := New[string, int](2, func(key string, _ int) {
		evicted = append(evicted, key)
	})

	c.Set("a", 1)
	c.Set("b", 2)

	// touch a so b becomes the eviction candidate
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("c", 3)

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"c", "a"}, c.Keys())
	assert.False(t, c.Contains("b"))
}

func TestLRU_ReplaceHandsOldValueToCallback(t *testing.T) {
	var got []int
	c := New[string, int](4, func(_ string, v int) {
		got = append(got, v)
	})

	c.Set("k", 1)
	c.Set("k", 2)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_ZeroCapacity(t *testing.T) {
	var got []int
	c := New[string, int](0, func(_ string, v int) {
		got = append(got, v)
	})

	c.Set("k", 7)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, []int{7}, got)
}

func TestLRU_InvalidateAndClear(t *testing.T) {
	var evicted []string
	c := New[string, int](8, func(key string, _ int) {
		evicted = append(evicted, key)
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Invalidate("b")
	c.Invalidate("missing")
	assert.Equal(t, []string{"b"}, evicted)

	c.Clear()
	assert.ElementsMatch(t, []string{"b", "a", "c"}, evicted)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
}

func TestLRU_Stats(t *testing.T) {
	c := New[int, string](1, nil)

	c.Set(1, "one")
	c.Get(1)
	c.Get(2)
	c.Set(2, "two")

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 1, stats.MaxSize)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}
