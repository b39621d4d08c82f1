package ratelimit

import "time"

// KeyStrategy selects what a policy's budget is scoped to.
type KeyStrategy int

const (
	// KeyByOrigin gives each client origin (IP) its own budget.
	KeyByOrigin KeyStrategy = iota
	// KeyBySubject gives each authenticated subject its own budget.
	KeyBySubject
	// KeyGlobal shares one budget across all callers.
	KeyGlobal
)

func (k KeyStrategy) String() string {
	switch k {
	case KeyByOrigin:
		return "origin"
	case KeyBySubject:
		return "subject"
	case KeyGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Policy declares one rate limit: Capacity requests per Window, scoped by
// KeyBy. The bucket refills to full capacity when the window elapses
// rather than dripping continuously.
type Policy struct {
	Capacity int
	Window   time.Duration
	KeyBy    KeyStrategy
}

func (p Policy) normalized() Policy {
	if p.Capacity < 1 {
		p.Capacity = 1
	}
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

// Decision is the outcome of one consume attempt. RetryAfter is the time
// until the window refills; it is populated on allowed decisions too so
// callers can emit reset headers unconditionally.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, the granularity
// of Retry-After and X-RateLimit-Reset headers.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
