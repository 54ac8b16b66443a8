package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

const testWindow = 10 * time.Second

func TestLimiter_AllowsUpToMax(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, testWindow, 6)

	for i := 1; i <= 6; i++ {
		assert.True(t, l.Allow("s1"), "attempt %d should be allowed", i)
	}
	assert.False(t, l.Allow("s1"), "7th attempt should be denied")
}

func TestLimiter_FreshWindowAfterExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, testWindow, 6)

	for i := 0; i < 7; i++ {
		l.Allow("s1")
	}
	assert.False(t, l.Allow("s1"))

	clock.Advance(testWindow)
	assert.True(t, l.Allow("s1"), "new window should allow again")
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, testWindow, 2)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// Denial for "a" does not consume "b"'s budget.
	assert.True(t, l.Allow("b"))
	assert.True(t, l.Allow("b"))
}

func TestLimiter_Remove(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, testWindow, 1)

	l.Allow("s1")
	assert.False(t, l.Allow("s1"))

	l.Remove("s1")
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Allow("s1"), "removed key starts a fresh window")
}

func TestLimiter_SweepRemovesStaleState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, testWindow, 6)

	l.Allow("stale")
	clock.Advance(5 * testWindow)
	l.Allow("fresh")

	// "stale" has been idle for 5 windows, below the 6-window cutoff.
	assert.Equal(t, 0, l.Sweep())
	assert.Equal(t, 2, l.Len())

	clock.Advance(2 * testWindow)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}
