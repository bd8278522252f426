package wait

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffNext(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Factor: 2}

	got := b.Next(0)
	if got != 100*time.Millisecond {
		t.Errorf("Expected initial interval, got %s", got)
	}
	got = b.Next(got)
	if got != 200*time.Millisecond {
		t.Errorf("Expected doubled interval, got %s", got)
	}
	got = b.Next(got)
	if got != 300*time.Millisecond {
		t.Errorf("Expected interval clamped to max, got %s", got)
	}
}

func TestUntil_Succeeds(t *testing.T) {
	calls := 0
	b := Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Factor: 1.5}
	err := Until(context.Background(), time.Second, b, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 polls, got %d", calls)
	}
}

func TestUntil_Timeout(t *testing.T) {
	b := Backoff{Initial: 5 * time.Millisecond, Max: 10 * time.Millisecond, Factor: 2}
	start := time.Now()
	err := Until(context.Background(), 50*time.Millisecond, b, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Timeout took too long: %s", elapsed)
	}
}

func TestUntil_ConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := Until(context.Background(), time.Second, DefaultBackoff(), func(ctx context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected condition error, got %v", err)
	}
}

func TestUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, time.Second, DefaultBackoff(), func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
