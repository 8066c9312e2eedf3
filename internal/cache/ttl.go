// Package cache provides a small thread-safe TTL cache with explicit invalidation.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is used when a cache is created with a zero TTL.
const DefaultTTL = 5 * time.Minute

// entry represents a cached value.
type entry[V any] struct {
	expiry time.Time
	value  V
}

// TTL is a map of string keys to values that expire after a fixed duration.
type TTL[K ~string, V any] struct {
	entries map[K]entry[V]
	now     func() time.Time
	stopCh  chan struct{}
	ttl     time.Duration
	gen     uint64
	mu      sync.RWMutex
	once    sync.Once
}

// New creates a cache with the specified TTL and starts its cleanup goroutine.
func New[K ~string, V any](ttl time.Duration) *TTL[K, V] {
	c := newTTL[K, V](ttl, time.Now)
	go c.cleanup(cleanupInterval(c.ttl))
	return c
}

func newTTL[K ~string, V any](ttl time.Duration, now func() time.Time) *TTL[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     now,
		stopCh:  make(chan struct{}),
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// Get retrieves a value if it exists and hasn't expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiry) {
		return zero, false
	}
	return e.value, true
}

// Set stores a value.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:  value,
		expiry: c.now().Add(c.ttl),
	}
}

// Generation returns a counter that every invalidation advances. Pair it with
// SetIfGeneration to store values computed from data read after the call.
func (c *TTL[K, V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfGeneration stores value only if no invalidation happened since gen was
// read. It reports whether the value was stored.
func (c *TTL[K, V]) SetIfGeneration(key K, value V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}
	c.entries[key] = entry[V]{
		value:  value,
		expiry: c.now().Add(c.ttl),
	}
	return true
}

// Invalidate removes the given keys.
func (c *TTL[K, V]) Invalidate(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// InvalidatePrefix removes every key starting with prefix and returns how many were removed.
func (c *TTL[K, V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	for k := range c.entries {
		if strings.HasPrefix(string(k), prefix) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// InvalidateFunc removes every key for which match returns true.
func (c *TTL[K, V]) InvalidateFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	removed := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Purge removes all entries.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[K]entry[V])
}

// Len returns the number of stored entries, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanup periodically removes expired entries.
func (c *TTL[K, V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *TTL[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, k)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *TTL[K, V]) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
