package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces browser actions so the portal sees a human-like cadence
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter
// perMinute specifies the number of actions allowed per minute; zero or less disables pacing
func NewLimiter(name string, perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{
			limiter: rate.NewLimiter(rate.Inf, 1),
			name:    name,
		}
	}

	// Allow burst of up to 5 actions or 1/10th of per-minute limit
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		name:    name,
	}
}

// Wait blocks until a token is available or context is cancelled.
// A nil limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Unlimited reports whether pacing is disabled
func (l *Limiter) Unlimited() bool {
	return l == nil || l.limiter.Limit() == rate.Inf
}

// Name returns the limiter name
func (l *Limiter) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}
