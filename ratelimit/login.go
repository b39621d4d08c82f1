package ratelimit

import (
	"sync"
	"time"
)

// LoginConfig tunes a LoginLimiter.
type LoginConfig struct {
	// MaxAttempts per window. Zero means 5.
	MaxAttempts int

	// Window is fixed and anchored at the first attempt. Zero means 1m.
	Window time.Duration

	// MaxKeys caps tracked origins. Zero means 10000.
	MaxKeys int

	// Clock overrides the time source. Nil means time.Now.
	Clock func() time.Time
}

// LoginLimiter counts login attempts per origin in a fixed window. Every
// Allow call consumes an attempt, successful or not; callers clear the
// counter with Reset after a successful login. Safe for concurrent use.
type LoginLimiter struct {
	mu      sync.Mutex
	windows map[string]*loginWindow
	max     int
	window  time.Duration
	maxKeys int
	now     func() time.Time
}

type loginWindow struct {
	count int
	start time.Time
}

func NewLoginLimiter(cfg LoginConfig) *LoginLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = 5
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &LoginLimiter{
		windows: make(map[string]*loginWindow),
		max:     max,
		window:  window,
		maxKeys: maxKeys,
		now:     now,
	}
}

// Allow records an attempt from the origin and reports whether it is
// within budget. The window starts at the origin's first attempt and
// resets fully when it elapses.
func (l *LoginLimiter) Allow(origin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[origin]
	if w == nil || now.Sub(w.start) >= l.window {
		if w == nil && len(l.windows) >= l.maxKeys {
			l.reapLocked(now)
		}
		w = &loginWindow{start: now}
		l.windows[origin] = w
	}
	w.count++
	return w.count <= l.max
}

// Remaining reports the attempts left for the origin in its current
// window.
func (l *LoginLimiter) Remaining(origin string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[origin]
	if w == nil || l.now().Sub(w.start) >= l.window {
		return l.max
	}
	left := l.max - w.count
	if left < 0 {
		return 0
	}
	return left
}

// RetryAfter reports how long until the origin's window resets. Zero when
// the origin has no live window.
func (l *LoginLimiter) RetryAfter(origin string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[origin]
	if w == nil {
		return 0
	}
	left := w.start.Add(l.window).Sub(l.now())
	if left < 0 {
		return 0
	}
	return left
}

// Reset clears the origin's counter, typically after a successful login.
func (l *LoginLimiter) Reset(origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, origin)
}

func (l *LoginLimiter) reapLocked(now time.Time) {
	for origin, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, origin)
		}
	}
}
