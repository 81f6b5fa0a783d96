// Package cache provides a small bounded TTL cache. It is always owned and
// injected by the component that needs it; there is no process-wide instance.
package cache

import (
	"sync"
	"time"
)

// TTL remembers string keys for a bounded time and count.
type TTL struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]time.Time
	now     func() time.Time
}

// NewTTL builds a cache holding at most max keys for ttl each.
func NewTTL(max int, ttl time.Duration) *TTL {
	if max <= 0 {
		max = 256
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TTL{
		ttl:     ttl,
		max:     max,
		entries: make(map[string]time.Time, max),
		now:     time.Now,
	}
}

// Add records key and reports whether it was absent (or expired). A false
// return means the key is already present and fresh.
func (c *TTL) Add(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.purgeLocked(now)

	if expiry, ok := c.entries[key]; ok && now.Before(expiry) {
		return false
	}
	if len(c.entries) >= c.max {
		c.evictOldestLocked()
	}
	c.entries[key] = now.Add(c.ttl)
	return true
}

// Contains reports whether key is present and fresh.
func (c *TTL) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.entries[key]
	return ok && c.now().Before(expiry)
}

// Len returns the number of fresh entries.
func (c *TTL) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeLocked(c.now())
	return len(c.entries)
}

func (c *TTL) purgeLocked(now time.Time) {
	for key, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, key)
		}
	}
}

func (c *TTL) evictOldestLocked() {
	var oldestKey string
	var oldestExpiry time.Time
	for key, expiry := range c.entries {
		if oldestKey == "" || expiry.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = expiry
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
