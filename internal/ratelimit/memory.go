// Package ratelimit provides a small in-memory fixed-window rate limiter
// used to shield the public, token-gated RSVP endpoint.
package ratelimit

import (
	"sync"
	"time"
)

const janitorInterval = time.Minute

type window struct {
	count   int
	resetAt time.Time
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit  int
	period time.Duration
}

// NewLimiter allows limit hits per key per period. A janitor goroutine
// drops stale windows.
func NewLimiter(limit int, period time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
	go l.janitor()
	return l
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.period)}
		return true
	}

	w.count++
	return w.count <= l.limit
}

func (l *Limiter) janitor() {
	for range time.Tick(janitorInterval) {
		now := time.Now()
		l.mu.Lock()
		for key, w := range l.windows {
			if now.After(w.resetAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}
