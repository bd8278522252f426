// Package wait provides bounded polling used in place of fixed sleeps.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a condition does not hold within its timeout.
var ErrTimeout = errors.New("wait timed out")

// Condition reports whether the awaited state has been reached.
// A non-nil error aborts the wait immediately.
type Condition func(ctx context.Context) (bool, error)

// Backoff controls the interval between polls.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// DefaultBackoff polls quickly at first and settles at one poll per second.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 100 * time.Millisecond,
		Max:     time.Second,
		Factor:  1.5,
	}
}

// Next returns the interval that follows d.
func (b Backoff) Next(d time.Duration) time.Duration {
	if d <= 0 {
		d = b.Initial
		if d <= 0 {
			d = 100 * time.Millisecond
		}
		return b.clamp(d)
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	return b.clamp(time.Duration(float64(d) * factor))
}

func (b Backoff) clamp(d time.Duration) time.Duration {
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Until polls cond until it holds or fails. Running out of time yields ErrTimeout,
// while cancellation of ctx yields ctx.Err().
func Until(ctx context.Context, timeout time.Duration, b Backoff, cond Condition) error {
	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var interval time.Duration
	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		interval = b.Next(interval)
		if remaining := time.Until(deadline); remaining < interval {
			interval = remaining
		}
		if interval <= 0 {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && time.Now().After(deadline) {
				return fmt.Errorf("%w after %s", ErrTimeout, timeout)
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Sleep idles for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
