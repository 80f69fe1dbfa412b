// Package ratelimit governs how fast crawls reach the backend and how often
// a single caller may start one.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// BackendLimiter is a token bucket shared by every run that talks to the
// crawl backend.
type BackendLimiter struct {
	limiter  *rate.Limiter
	interval time.Duration
	burst    int
}

// NewBackendLimiter allows one request per interval with the given burst.
// A non-positive interval disables limiting.
func NewBackendLimiter(interval time.Duration, burst int) *BackendLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &BackendLimiter{
		limiter:  rate.NewLimiter(limit, burst),
		interval: interval,
		burst:    burst,
	}
}

// Acquire blocks until a permit is available or ctx is done. A cancelled wait
// returns its reservation, so no token is consumed.
func (l *BackendLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Wait fails early when the deadline cannot be met.
		return fmt.Errorf("backend permit unavailable before deadline: %w", context.DeadlineExceeded)
	}
	return nil
}

// Tokens reports the permits currently available.
func (l *BackendLimiter) Tokens() float64 {
	return l.limiter.Tokens()
}

// Interval returns the configured spacing between permits.
func (l *BackendLimiter) Interval() time.Duration {
	return l.interval
}
