// Package cache provides an in-memory key -> (value, expiry) cache.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a concurrency-safe cache whose entries expire after a fixed TTL
// unless stored with an explicit one. Expired entries are invisible to Get and
// removed by Purge.
type TTLCache[V any] struct {
	now     func() time.Time
	entries map[string]entry[V]
	ttl     time.Duration
	mu      sync.RWMutex
}

// New creates a cache with the given default TTL
func New[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		now:     time.Now,
		entries: make(map[string]entry[V]),
		ttl:     ttl,
	}
}

// WithClock replaces the time source, for tests
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// TTL returns the default time-to-live
func (c *TTLCache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key if present and not expired
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors from load are returned and nothing is cached.
func (c *TTLCache[V]) GetOrLoad(key string, ttl time.Duration, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.SetWithTTL(key, v, ttl)
	return v, nil
}

// Delete removes key
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge removes expired entries and returns how many were removed
func (c *TTLCache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear removes every entry
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, expired or not
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
