// Package ratelimit provides a simple sliding window rate limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements a sliding window rate limiter. It tracks events per
// key and rejects events that exceed the limit within the window.
type Limiter struct {
	mu      sync.Mutex
	events  map[string][]time.Time
	limit   int
	window  time.Duration
	cleanup time.Duration
	swept   time.Time
}

// New creates a new rate limiter allowing limit events per window per key.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		events:  make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		cleanup: window * 10,
		swept:   time.Now(),
	}
}

// Allow reports whether an event should be allowed for the given key,
// recording it if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.window)

	// Periodic sweep of keys with no recent events
	if now.Sub(l.swept) > l.cleanup {
		l.sweep(windowStart)
		l.swept = now
	}

	times := l.events[key]
	valid := times[:0]
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	l.events[key] = valid

	if len(valid) >= l.limit {
		return false
	}

	l.events[key] = append(l.events[key], now)
	return true
}

// Forget clears tracking for a key, typically on session teardown.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, key)
}

// sweep removes stale entries. Must be called with mu held.
func (l *Limiter) sweep(windowStart time.Time) {
	for key, times := range l.events {
		valid := times[:0]
		for _, t := range times {
			if t.After(windowStart) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(l.events, key)
		} else {
			l.events[key] = valid
		}
	}
}
