package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func ist(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, ISTLocation())
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestGetMarketStatus(t *testing.T) {
	schedule := DefaultMarketSchedule()
	tests := []struct {
		at     string
		open   bool
		reason string
	}{
		{"2026-03-02 10:00", true, "open"},         // Monday
		{"2026-03-02 09:00", false, "pre-market"},  // before 09:15
		{"2026-03-02 15:30", false, "after-hours"}, // close is exclusive
		{"2026-03-07 11:00", false, "weekend"},     // Saturday
		{"2026-01-26 11:00", false, "holiday"},     // Republic Day
	}
	for _, tt := range tests {
		status := GetMarketStatus(schedule, ist(t, tt.at))
		if status.IsOpen != tt.open || status.Reason != tt.reason {
			t.Errorf("%s: expected open=%v reason=%s, got open=%v reason=%s",
				tt.at, tt.open, tt.reason, status.IsOpen, status.Reason)
		}
	}
}

func TestGetMarketStatus_TimeToOpen(t *testing.T) {
	// Friday after close opens Monday 09:15
	status := GetMarketStatus(DefaultMarketSchedule(), ist(t, "2026-03-06 16:15"))
	if want := 65 * time.Hour; status.TimeToOpen != want {
		t.Errorf("Expected %s to open, got %s", want, status.TimeToOpen)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(2*time.Hour + 5*time.Minute); got != "2h 5m" {
		t.Errorf("Unexpected %s", got)
	}
	if got := FormatDuration(-time.Second); got != "0s" {
		t.Errorf("Unexpected %s", got)
	}
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop(), false)
	if err := s.Register("every morning", func(context.Context) error { return nil }); err == nil {
		t.Error("Expected error for invalid cron spec")
	}
}

func TestScheduler_UsesIST(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop(), false)
	if got, want := s.Cron.Location().String(), ISTLocation().String(); got != want {
		t.Errorf("Expected cron location %s, got %s", want, got)
	}

	if err := s.Register("0 30 9 * * 1-5", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	entries := s.Cron.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	next := entries[0].Schedule.Next(ist(t, "2026-03-02 08:00"))
	if want := ist(t, "2026-03-02 09:30"); !next.Equal(want) {
		t.Errorf("Expected next run %v, got %v", want, next)
	}
}

func TestRun_SkipsWhenMarketClosed(t *testing.T) {
	s := NewScheduler(context.Background(), zerolog.Nop(), true)
	s.now = func() time.Time { return ist(t, "2026-03-07 11:00") }

	var calls int32
	s.run(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if calls != 0 {
		t.Errorf("Expected no run on a weekend, got %d", calls)
	}

	s.now = func() time.Time { return ist(t, "2026-03-02 10:00") }
	s.run(func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if calls != 1 {
		t.Errorf("Expected one run during market hours, got %d", calls)
	}
}

func TestScheduler_RunsWithoutOverlap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewScheduler(ctx, zerolog.Nop(), false)

	var (
		mu      sync.Mutex
		running int
		peak    int
		runs    int
	)
	err := s.Register("* * * * * *", func(ctx context.Context) error {
		mu.Lock()
		running++
		runs++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(1500 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.Start()
	time.Sleep(3500 * time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if runs == 0 {
		t.Fatal("Expected at least one run")
	}
	if peak != 1 {
		t.Errorf("Expected runs not to overlap, peak concurrency %d", peak)
	}
}
