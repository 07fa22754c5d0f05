package lru

// Stats is a point-in-time snapshot of cache effectiveness counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	BloomFiltered int64
}

// HitRate returns hits / (hits + misses), or 0 with no lookups yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns the current counter values without taking the cache lock.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		BloomFiltered: c.bloomFiltered.Load(),
	}
}
