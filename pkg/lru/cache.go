// Package lru provides a generic thread-safe LRU cache with count- and
// size-based eviction. It backs the column cache of the batch pipeline and
// the aligned-result memo of the series package.
package lru

import (
	"container/list"
	"sync"
	"sync/atomic"
)

type item[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

// limits bounds a cache by entry count, total size, or both. Zero disables
// a bound.
type limits struct {
	entries int
	bytes   int64
}

// Cache is a thread-safe generic LRU cache. The front of order is the most
// recently used entry.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	index map[K]*list.Element
	order *list.List
	used  int64
	limit limits

	sizeOf func(V) int64

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithMaxEntries bounds the number of entries.
func WithMaxEntries[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) { c.limit.entries = n }
}

// WithMaxBytes bounds the summed size of values as measured by sizeOf.
func WithMaxBytes[K comparable, V any](maxBytes int64, sizeOf func(V) int64) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.limit.bytes = maxBytes
		c.sizeOf = sizeOf
	}
}

// New creates a cache. It panics unless WithMaxEntries or WithMaxBytes sets
// a positive bound.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		index: make(map[K]*list.Element),
		order: list.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.limit.entries <= 0 && c.limit.bytes <= 0 {
		panic("lru: WithMaxEntries or WithMaxBytes is required")
	}

	return c
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)
	c.order.MoveToFront(elem)

	return elem.Value.(*item[K, V]).value, true //nolint:forcetypeassert // order only holds items.
}

// Put stores value under key. A value larger than the byte bound is not
// stored at all.
func (c *Cache[K, V]) Put(key K, value V) {
	size := int64(1)
	if c.sizeOf != nil {
		size = c.sizeOf(value)
	}

	if c.limit.bytes > 0 && size > c.limit.bytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		it := elem.Value.(*item[K, V]) //nolint:forcetypeassert // order only holds items.
		c.used += size - it.size
		it.value, it.size = value, size
		c.order.MoveToFront(elem)
		c.shrink(0, elem)

		return
	}

	c.shrink(size, nil)

	c.index[key] = c.order.PushFront(&item[K, V]{key: key, value: value, size: size})
	c.used += size
}

// shrink evicts from the back until an incoming value of size fits. keep,
// when set, is an entry that was just updated and must survive.
func (c *Cache[K, V]) shrink(incoming int64, keep *list.Element) {
	for {
		back := c.order.Back()
		if back == nil || back == keep {
			return
		}

		overCount := keep == nil && c.limit.entries > 0 && c.order.Len() >= c.limit.entries
		overBytes := c.limit.bytes > 0 && c.used+incoming > c.limit.bytes

		if !overCount && !overBytes {
			return
		}

		it := c.order.Remove(back).(*item[K, V]) //nolint:forcetypeassert // order only holds items.
		delete(c.index, it.key)
		c.used -= it.size
	}
}
