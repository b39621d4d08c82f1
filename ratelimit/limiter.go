package ratelimit

import "time"

const (
	defaultMaxKeys = 10000
	defaultIdleTTL = 10 * time.Minute
)

// Config tunes the Limiter's key cache.
type Config struct {
	// MaxKeys caps the number of live buckets. Zero means 10000.
	MaxKeys int

	// IdleTTL drops buckets untouched for this long. Zero means 10m.
	IdleTTL time.Duration

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

// Limiter applies token-bucket policies to keys. One Limiter serves any
// number of policies; buckets are tracked per policy-and-key pair. Safe
// for concurrent use.
type Limiter struct {
	cache *bucketCache
	now   func() time.Time
}

func New(cfg Config) *Limiter {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		cache: newBucketCache(maxKeys, idleTTL, now()),
		now:   now,
	}
}

// TryConsume spends one token from the bucket selected by policy and key,
// creating a full bucket on first sight of the pair. The decision carries
// the headers-ready remaining count and refill delay either way.
func (l *Limiter) TryConsume(p Policy, key string) Decision {
	p = p.normalized()
	now := l.now()

	b := l.cache.getOrCreate(p.KeyBy.String()+":"+key, now, func() *bucket {
		return newBucket(p.Capacity, p.Window, now)
	})
	remaining, untilRefill, ok := b.tryConsume(now)

	return Decision{
		Allowed:    ok,
		Limit:      p.Capacity,
		Remaining:  remaining,
		RetryAfter: untilRefill,
	}
}

// ActiveKeys reports the number of live buckets, mainly for tests and
// operational introspection.
func (l *Limiter) ActiveKeys() int {
	return l.cache.len()
}
