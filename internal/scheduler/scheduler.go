// Package scheduler runs the recurring pipeline, routing, and watchdog
// jobs on crontab schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Job is a named unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with logging and per-run timeouts.
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
}

// New creates a scheduler. Jobs run with standard 5-field crontab specs;
// jobTimeout bounds each invocation (0 means no bound).
func New(jobTimeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		jobTimeout: jobTimeout,
	}
}

// Add schedules a job. Overlapping runs of the same job are allowed; every
// job in this system is idempotent.
func (s *Scheduler) Add(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		cancel := func() {}
		if s.jobTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		}
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			zap.L().Error("scheduled job failed",
				zap.String("job", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		zap.L().Info("scheduled job complete",
			zap.String("job", name),
			zap.Duration("elapsed", time.Since(start)))
	})
	if err != nil {
		return eris.Wrapf(err, "scheduler: add job %s with spec %q", name, spec)
	}
	zap.L().Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish, up to the
// context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "scheduler: stop")
	}
}
