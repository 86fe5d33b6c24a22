// SPDX-License-Identifier: MIT

// Package cache provides a typed in-memory cache with TTL support and
// de-duplicated loading.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64 // Get calls that found a live entry
	Misses      int64 // Get calls that found nothing or an expired entry
	Sets        int64
	Loads       int64 // loader invocations performed by GetOrLoad
	Evictions   int64 // expired entries removed by the janitor
	CurrentSize int
}

type entry[V any] struct {
	value      V
	expiration time.Time
}

func (e *entry[V]) isExpired(now time.Time) bool {
	return now.After(e.expiration)
}

// Memory is a thread-safe in-memory cache keyed by string.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	stats   Stats
	now     func() time.Time
	group   singleflight.Group

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemory creates a cache. When cleanupInterval is positive a janitor
// goroutine removes expired entries until Close is called.
func NewMemory[V any](cleanupInterval time.Duration) *Memory[V] {
	c := &Memory[V]{
		entries: make(map[string]*entry[V]),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

// Get retrieves a live value.
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired(c.now()) {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores a value for ttl.
func (c *Memory[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry[V]{value: value, expiration: c.now().Add(ttl)}
	c.stats.Sets++
}

// Delete removes a value.
func (c *Memory[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all values.
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Stats returns a snapshot of the counters.
func (c *Memory[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// GetOrLoad returns the cached value for key or calls load once, even when
// several goroutines ask for the same key concurrently. Errors are not cached.
func (c *Memory[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		c.mu.Lock()
		c.stats.Loads++
		c.mu.Unlock()

		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Close stops the janitor. It is safe to call more than once.
func (c *Memory[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Memory[V]) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

func (c *Memory[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}
