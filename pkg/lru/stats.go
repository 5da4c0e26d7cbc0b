package lru

// Stats is a point-in-time view of a cache.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	// MaxEntries and MaxSize are 0 when that bound is not set.
	MaxEntries int
	MaxSize    int64
}

// HitRate is Hits / (Hits + Misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	lookups := s.Hits + s.Misses
	if lookups == 0 {
		return 0
	}

	return float64(s.Hits) / float64(lookups)
}

// Stats snapshots the counters and occupancy.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     c.order.Len(),
		CurrentSize: c.used,
		MaxEntries:  c.limit.entries,
		MaxSize:     c.limit.bytes,
	}
}
