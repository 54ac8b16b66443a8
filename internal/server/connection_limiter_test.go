package server

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPConnectionLimiter_AcquireRelease(t *testing.T) {
	limiter := NewIPConnectionLimiter(2)

	assert.True(t, limiter.Acquire("10.0.0.1"))
	assert.True(t, limiter.Acquire("10.0.0.1"))
	assert.Equal(t, 2, limiter.Count("10.0.0.1"))

	// Third connection from the same IP is refused.
	assert.False(t, limiter.Acquire("10.0.0.1"))

	// A different IP has its own budget.
	assert.True(t, limiter.Acquire("10.0.0.2"))
	assert.Equal(t, 2, limiter.UniqueIPs())

	limiter.Release("10.0.0.1")
	assert.True(t, limiter.Acquire("10.0.0.1"))
}

func TestIPConnectionLimiter_ReleaseCleansUpEntry(t *testing.T) {
	limiter := NewIPConnectionLimiter(5)

	limiter.Acquire("10.0.0.1")
	limiter.Release("10.0.0.1")

	assert.Equal(t, 0, limiter.UniqueIPs())

	// Releasing an unknown IP must not underflow.
	limiter.Release("10.0.0.9")
	assert.Equal(t, 0, limiter.Count("10.0.0.9"))
}

func TestIPConnectionLimiter_Concurrent(t *testing.T) {
	limiter := NewIPConnectionLimiter(50)
	var successCount int64

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if limiter.Acquire("10.0.0.1") {
				atomic.AddInt64(&successCount, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(50), atomic.LoadInt64(&successCount))
	assert.Equal(t, 50, limiter.Count("10.0.0.1"))
}

func TestConnectionRateLimiter_BurstThenRefuse(t *testing.T) {
	limiter := NewConnectionRateLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "burst attempt %d", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other IPs carry independent buckets.
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.Equal(t, 2, limiter.ActiveLimiters())
}

func TestAdmissionLimits_ReasonAndSlotAccounting(t *testing.T) {
	limits := NewAdmissionLimits(1, 100.0, 100)

	ok, reason := limits.Acquire("10.0.0.1")
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = limits.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)

	limits.Release("10.0.0.1")
	ok, _ = limits.Acquire("10.0.0.1")
	assert.True(t, ok)
}

func TestAdmissionLimits_RateReason(t *testing.T) {
	limits := NewAdmissionLimits(100, 1.0, 1)

	ok, _ := limits.Acquire("10.0.0.1")
	assert.True(t, ok)

	ok, reason := limits.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)
}
