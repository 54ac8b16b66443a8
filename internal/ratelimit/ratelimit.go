// Package ratelimit implements a fixed-window message rate limiter keyed by
// session ID.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// staleAfterWindows is how many idle window lengths a key's state survives
// before a sweep reclaims it. Sweeping bounds memory even if disconnect
// cleanup is missed.
const staleAfterWindows = 6

type windowState struct {
	windowStart time.Time
	count       int
	lastSeen    time.Time
}

// Limiter allows at most max events per key within a fixed time window.
// Windows are independent per key.
type Limiter struct {
	clock  clockwork.Clock
	window time.Duration
	max    int

	mu      sync.Mutex
	windows map[string]*windowState
}

// New creates a limiter allowing max events per window for each key.
func New(clock clockwork.Clock, window time.Duration, max int) *Limiter {
	return &Limiter{
		clock:   clock,
		window:  window,
		max:     max,
		windows: make(map[string]*windowState),
	}
}

// Allow reports whether an event for key is within the rate limit, consuming
// one slot of the current window if so. An expired or missing window starts
// fresh with count 1.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	state, ok := l.windows[key]
	if !ok || now.Sub(state.windowStart) >= l.window {
		l.windows[key] = &windowState{windowStart: now, count: 1, lastSeen: now}
		return true
	}

	state.count++
	state.lastSeen = now
	return state.count <= l.max
}

// Remove deletes all state for key. Called when a session disconnects.
func (l *Limiter) Remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Sweep removes state for keys idle beyond several window lengths.
// Returns the number of entries removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock.Now().Add(-time.Duration(staleAfterWindows) * l.window)
	removed := 0
	for key, state := range l.windows {
		if state.lastSeen.Before(cutoff) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of keys with tracked state.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
