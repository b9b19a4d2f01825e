package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter("yahoo", 60)

	assert.Equal(t, "yahoo", limiter.Name())
	assert.Equal(t, 60, limiter.PerMinute())

	// burst of 5 is served immediately
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(), "request %d", i)
	}
	assert.False(t, limiter.Allow())
}

func TestNewLimiterClampsRate(t *testing.T) {
	limiter := NewLimiter("slow", 0)
	assert.Equal(t, 1, limiter.PerMinute())
	assert.True(t, limiter.Allow())
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter("test", 120)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiterBackoff(t *testing.T) {
	limiter := NewLimiter("test", 60)

	initial := limiter.Backoff()
	limiter.SignalRateLimited()
	after1 := limiter.Backoff()
	assert.Greater(t, after1, initial)

	limiter.SignalRateLimited()
	assert.Greater(t, limiter.Backoff(), after1)

	for i := 0; i < 20; i++ {
		limiter.SignalRateLimited()
	}
	assert.Equal(t, maxBackoff, limiter.Backoff())

	limiter.ResetBackoff()
	assert.Equal(t, initial, limiter.Backoff())
}

func TestWaitHonoursBackoffAndContext(t *testing.T) {
	limiter := NewLimiter("test", 600)
	limiter.SignalRateLimited()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the pending pause was consumed by the cancelled wait
	require.NoError(t, limiter.Wait(context.Background()))
}
