// Package scheduler starts offboarding workflows whose scheduled time has passed.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/CuracelDev/curacel-peoplev2-sub001/pkg/requestcontext"
)

// Processor runs every due workflow and reports how many it picked up.
type Processor interface {
	ProcessScheduled(ctx context.Context, now time.Time) (int, error)
}

// Scheduler ticks Processor.ProcessScheduled on a fixed interval.
type Scheduler struct {
	processor Processor
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func New(processor Processor, opts ...Option) *Scheduler {
	s := &Scheduler{
		processor: processor,
		interval:  time.Minute,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled. The first tick happens immediately so a
// restart does not delay overdue workflows by a full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes due workflows once as the system actor.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()
	ctx = requestcontext.WithActorID(ctx, requestcontext.SystemActor)
	ctx = requestcontext.WithTime(ctx, now)

	n, err := s.processor.ProcessScheduled(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled offboarding run failed", "error", err, "processed", n)
		return n
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "scheduled offboarding workflows started", "count", n)
	}
	return n
}
