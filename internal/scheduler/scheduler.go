// Package scheduler repeats the holdings scan on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron spec with a seconds field, evaluated in IST.
// Runs never overlap.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	log             zerolog.Logger
	marketHoursOnly bool
	schedule        MarketSchedule
	now             func() time.Time
}

// NewScheduler creates a new Scheduler. Jobs receive ctx.
func NewScheduler(ctx context.Context, log zerolog.Logger, marketHoursOnly bool) *Scheduler {
	logger := cronLogger{log: log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(ISTLocation()),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		Ctx:             ctx,
		log:             log,
		marketHoursOnly: marketHoursOnly,
		schedule:        DefaultMarketSchedule(),
		now:             time.Now,
	}
}

// Register adds job under spec.
func (s *Scheduler) Register(spec string, job Job) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("register scan %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) run(job Job) {
	if s.Ctx.Err() != nil {
		return
	}
	if s.marketHoursOnly {
		status := GetMarketStatus(s.schedule, s.now())
		if !status.IsOpen {
			s.log.Info().
				Str("reason", status.Reason).
				Str("opens_in", FormatDuration(status.TimeToOpen)).
				Msg("Market closed, skipping scheduled scan")
			return
		}
	}

	start := s.now()
	s.log.Info().Msg("Scheduled scan starting")
	if err := job(s.Ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled scan failed")
		return
	}
	s.log.Info().Dur("elapsed", s.now().Sub(start)).Msg("Scheduled scan finished")
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	if entries := s.Cron.Entries(); len(entries) > 0 {
		s.log.Info().Time("next", entries[0].Next).Msg("Scheduler started")
		return
	}
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
