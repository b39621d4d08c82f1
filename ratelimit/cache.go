package ratelimit

import (
	"sync"
	"time"
)

// bucketCache holds per-key buckets with idle expiry and a size cap, so an
// attacker cycling through keys cannot grow memory without bound. Entries
// unused for idleTTL are dropped; at maxEntries the stalest entry is
// evicted to make room.
type bucketCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	maxEntries int
	idleTTL    time.Duration
	lastReap   time.Time
}

type cacheEntry struct {
	bucket     *bucket
	lastAccess time.Time
}

func newBucketCache(maxEntries int, idleTTL time.Duration, now time.Time) *bucketCache {
	return &bucketCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		idleTTL:    idleTTL,
		lastReap:   now,
	}
}

// getOrCreate returns the live bucket for the key, building one with
// create when the key is new or its entry went idle past the TTL. An idle
// entry is replaced rather than resumed, which resets its budget; a client
// silent for the idle TTL has long since refilled anyway.
func (c *bucketCache) getOrCreate(key string, now time.Time, create func() *bucket) *bucket {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastReap) >= c.idleTTL {
		c.reapLocked(now)
	}

	if e, ok := c.entries[key]; ok && now.Sub(e.lastAccess) < c.idleTTL {
		e.lastAccess = now
		return e.bucket
	}

	if len(c.entries) >= c.maxEntries {
		c.reapLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictStalestLocked()
		}
	}

	b := create()
	c.entries[key] = &cacheEntry{bucket: b, lastAccess: now}
	return b
}

func (c *bucketCache) reapLocked(now time.Time) {
	for key, e := range c.entries {
		if now.Sub(e.lastAccess) >= c.idleTTL {
			delete(c.entries, key)
		}
	}
	c.lastReap = now
}

func (c *bucketCache) evictStalestLocked() {
	var stalest string
	var stalestAt time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastAccess.Before(stalestAt) {
			stalest, stalestAt, first = key, e.lastAccess, false
		}
	}
	if !first {
		delete(c.entries, stalest)
	}
}

func (c *bucketCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
