// Package ratelimit paces outbound market-data requests per provider.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 2 * time.Minute
)

// Limiter wraps rate.Limiter with a backoff that grows on every 429 response
// and is served by the next Wait
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	backoff time.Duration // pending pause, zero when healthy
	next    time.Duration // pause applied on the next 429
}

// NewLimiter creates a limiter allowing perMinute requests per minute with a
// burst of a tenth of that, between 1 and 5
func NewLimiter(name string, perMinute int) *Limiter {
	perMinute = max(perMinute, 1)
	burst := min(max(perMinute/10, 1), 5)
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		name:    name,
		next:    initialBackoff,
	}
}

// Wait blocks until any pending backoff has elapsed and a token is available,
// or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := l.backoff
	l.backoff = 0
	l.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited schedules a pause before the next request and doubles the
// pause for the following 429
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.backoff = l.next
	l.next = min(l.next*2, maxBackoff)
}

// ResetBackoff clears the backoff after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = 0
	l.next = initialBackoff
}

// Backoff returns the pause the next 429 will schedule
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	return l.name
}

// PerMinute returns the configured steady-state rate
func (l *Limiter) PerMinute() int {
	return int(float64(l.limiter.Limit())*60 + 0.5)
}
