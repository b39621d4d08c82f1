package ratelimit

import (
	"sync"
	"time"
)

// bucket is one token bucket with interval refill: the full capacity
// returns when the window elapses, with no partial drip in between.
type bucket struct {
	mu          sync.Mutex
	capacity    int
	window      time.Duration
	tokens      int
	windowStart time.Time
}

func newBucket(capacity int, window time.Duration, now time.Time) *bucket {
	return &bucket{
		capacity:    capacity,
		window:      window,
		tokens:      capacity,
		windowStart: now,
	}
}

// tryConsume takes one token if available. It reports the tokens left and
// how long until the bucket refills.
func (b *bucket) tryConsume(now time.Time) (remaining int, untilRefill time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.windowStart) >= b.window {
		b.tokens = b.capacity
		b.windowStart = now
	}
	untilRefill = b.windowStart.Add(b.window).Sub(now)

	if b.tokens > 0 {
		b.tokens--
		return b.tokens, untilRefill, true
	}
	return 0, untilRefill, false
}
