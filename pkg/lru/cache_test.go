package lru_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackline/pkg/lru"
)

const (
	smallMaxEntries          = 3
	testMaxBytes             = 100
	testConcurrentGoroutines = 20
	testConcurrentOps        = 100
)

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[string, int](10))

	got, found := cache.Get("gdp")
	assert.False(t, found)
	assert.Zero(t, got)

	cache.Put("gdp", 42)

	got, found = cache.Get("gdp")
	require.True(t, found)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](smallMaxEntries))

	cache.Put(1, "a")
	cache.Put(2, "b")
	cache.Put(3, "c")

	// Touch 1 so 2 becomes the eviction victim.
	_, _ = cache.Get(1)

	cache.Put(4, "d")

	assert.Equal(t, smallMaxEntries, cache.Stats().Entries)
	assertCached(t, cache, 2, false)
	assertCached(t, cache, 1, true)
	assertCached(t, cache, 4, true)
}

func assertCached[K comparable, V any](t *testing.T, cache *lru.Cache[K, V], key K, want bool) {
	t.Helper()

	_, ok := cache.Get(key)
	assert.Equal(t, want, ok, "key %v", key)
}

func TestCache_SizeBased(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxBytes[int, []float64](testMaxBytes, func(v []float64) int64 {
		return int64(len(v))
	}))

	cache.Put(1, make([]float64, 60))
	cache.Put(2, make([]float64, 60))

	assertCached(t, cache, 1, false)
	assertCached(t, cache, 2, true)

	// Larger than the whole cache: skipped.
	cache.Put(3, make([]float64, testMaxBytes+1))
	assertCached(t, cache, 3, false)

	// Growing an entry in place evicts older ones to make room.
	cache.Put(4, make([]float64, 30))
	cache.Put(2, make([]float64, 80))
	assertCached(t, cache, 4, false)
	assertCached(t, cache, 2, true)
	assert.Equal(t, int64(80), cache.Stats().CurrentSize)

	cache.Put(2, make([]float64, 60))

	stats := cache.Stats()
	assert.Equal(t, int64(60), stats.CurrentSize)
	assert.Equal(t, int64(testMaxBytes), stats.MaxSize)
}

func TestCache_UpdateInPlace(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[string, int](smallMaxEntries))

	cache.Put("a", 1)
	cache.Put("a", 2)

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCache_Stats(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, int](smallMaxEntries))
	cache.Put(1, 1)

	_, _ = cache.Get(1)
	_, _ = cache.Get(2)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
	assert.Zero(t, lru.Stats{}.HitRate())
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, smallMaxEntries, stats.MaxEntries)
}

func TestCache_NoLimitPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { lru.New[int, int]() })
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, int](testConcurrentOps))

	var wg sync.WaitGroup

	for g := range testConcurrentGoroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range testConcurrentOps {
				cache.Put(g*testConcurrentOps+i, i)
				_, _ = cache.Get(i)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, cache.Stats().Entries, testConcurrentOps)
}
