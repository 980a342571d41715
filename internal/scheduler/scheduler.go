package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every scheduled occurrence.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour. The cadence is weekly, anchored on a
// weekday and a time-of-day offset from midnight UTC.
type Options struct {
	Weekday      time.Weekday
	At           time.Duration
	StartupDelay time.Duration
}

// Scheduler drives weekly execution of the analysis pipeline.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Run blocks, invoking the tick function at each weekly occurrence until
// ctx is cancelled. Tick errors are logged; the loop continues.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	next := s.NextOccurrence(s.now().UTC())
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.NextOccurrence(s.now().UTC())
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		s.logger.Debug().Time("next_run", next).Msg("waiting for next scheduled run")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		s.logger.Info().Time("run", next).Msg("executing scheduled run")

		if err := tick(ctx, next); err != nil {
			s.logger.Error().Err(err).Time("run", next).Msg("scheduled run failed")
		}

		next = next.AddDate(0, 0, 7)
	}
}

// NextOccurrence returns the first scheduled instant strictly after now.
func (s *Scheduler) NextOccurrence(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(s.opts.Weekday) - int(day.Weekday()) + 7) % 7
	candidate := day.AddDate(0, 0, offset).Add(s.opts.At)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
