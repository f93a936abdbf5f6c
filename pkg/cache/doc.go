// Package cache provides a thread-safe, TTL-bounded map cache with two-stage
// size eviction. It backs the audit pipeline's event-id resolution caches,
// where strict LRU ordering is not worth the bookkeeping: entries expire on
// their own and the cache only needs a hard memory bound, not recency
// precision.
//
// Eviction runs on writes. When a Put pushes the cache over its capacity,
// expired entries are purged first; if the cache still exceeds its low-water
// mark, arbitrary entries are removed until it is back at the mark. Reads
// never serve expired entries.
//
//	c := cache.NewTTL[string, string](2*time.Minute, 20_000, 10_000)
//	c.Put("app-1", "event-9")
//	eventID, ok := c.Get("app-1")
package cache
