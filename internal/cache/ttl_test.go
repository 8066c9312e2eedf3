package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTL(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		c := New[string, int](time.Minute)
		defer c.Close()

		_, found := c.Get("missing")
		assert.False(t, found)

		c.Set("a", 1)
		v, found := c.Get("a")
		require.True(t, found)
		assert.Equal(t, 1, v)
		assert.Equal(t, 1, c.Len())

		c.Purge()
		assert.Equal(t, 0, c.Len())
		_, found = c.Get("a")
		assert.False(t, found)
	})

	t.Run("expiration", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := newTTL[string, string](time.Minute, clock.Now)

		c.Set("k", "v")
		clock.Advance(59 * time.Second)
		_, found := c.Get("k")
		assert.True(t, found)

		clock.Advance(2 * time.Second)
		_, found = c.Get("k")
		assert.False(t, found)

		assert.Equal(t, 1, c.Len(), "expired entries linger until cleanup")
		c.removeExpired()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		c := newTTL[string, int](0, time.Now)
		assert.Equal(t, DefaultTTL, c.ttl)
	})

	t.Run("invalidation", func(t *testing.T) {
		c := New[string, int](time.Minute)
		defer c.Close()

		c.Set("f=1|u=a|netflix", 1)
		c.Set("f=1|u=b|netflix", 2)
		c.Set("f=2|u=c|netflix", 3)
		c.Set("f=2|u=c|ifood", 4)

		c.Invalidate("f=1|u=a|netflix", "unknown")
		assert.Equal(t, 3, c.Len())

		assert.Equal(t, 2, c.InvalidatePrefix("f=2|"))
		assert.Equal(t, 1, c.Len())

		removed := c.InvalidateFunc(func(k string) bool { return k == "f=1|u=b|netflix" })
		assert.Equal(t, 1, removed)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := New[string, int](time.Millisecond)
		c.Close()
		assert.NotPanics(t, c.Close)
	})
}

func TestTTL_SetIfGeneration(t *testing.T) {
	tests := []struct {
		name       string
		invalidate func(c *TTL[string, int])
	}{
		{"invalidate", func(c *TTL[string, int]) { c.Invalidate("other") }},
		{"prefix", func(c *TTL[string, int]) { c.InvalidatePrefix("nothing-matches") }},
		{"func", func(c *TTL[string, int]) { c.InvalidateFunc(func(string) bool { return false }) }},
		{"purge", func(c *TTL[string, int]) { c.Purge() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New[string, int](time.Minute)
			defer c.Close()

			gen := c.Generation()
			tt.invalidate(c)

			assert.False(t, c.SetIfGeneration("k", 1, gen))
			_, found := c.Get("k")
			assert.False(t, found)

			assert.True(t, c.SetIfGeneration("k", 2, c.Generation()))
			v, found := c.Get("k")
			require.True(t, found)
			assert.Equal(t, 2, v)
		})
	}
}

func TestTTL_Concurrent(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Set(key, i)
			c.Get(key)
			if i%7 == 0 {
				c.InvalidatePrefix("k1")
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 5)
}
