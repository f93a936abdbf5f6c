package cache

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a thread-safe cache whose entries expire after a fixed duration.
// Size is bounded by two-stage eviction rather than LRU: over capacity,
// expired entries go first, then arbitrary entries down to the low-water
// mark.
type TTL[K comparable, V any] struct {
	ttl      time.Duration
	capacity int
	lowWater int
	mu       sync.Mutex
	items    map[K]ttlEntry[V]
	now      func() time.Time // swappable for tests
}

// NewTTL creates a TTL cache. It panics when ttl is not positive, capacity is
// not positive, or lowWater exceeds capacity, since any of those indicate a
// wiring bug rather than a runtime condition.
func NewTTL[K comparable, V any](ttl time.Duration, capacity, lowWater int) *TTL[K, V] {
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	if lowWater <= 0 || lowWater > capacity {
		panic("cache: low-water mark must be positive and not exceed capacity")
	}
	return &TTL[K, V]{
		ttl:      ttl,
		capacity: capacity,
		lowWater: lowWater,
		items:    make(map[K]ttlEntry[V]),
		now:      time.Now,
	}
}

// Get returns the value for key if present and not expired. Expired entries
// are removed lazily on access.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Put stores a value under key with a fresh TTL, then enforces the size
// bound.
func (c *TTL[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = ttlEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}

	if len(c.items) <= c.capacity {
		return
	}

	now := c.now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}

	// Unspecified map iteration order supplies the arbitrary eviction.
	for k := range c.items {
		if len(c.items) <= c.lowWater {
			break
		}
		delete(c.items, k)
	}
}

// Remove deletes key from the cache.
func (c *TTL[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of entries currently held, expired ones included.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SetClock replaces the cache's time source. Intended for tests that need to
// advance time without sleeping.
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now != nil {
		c.now = now
	}
}
