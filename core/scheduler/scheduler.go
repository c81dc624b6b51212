// Package scheduler runs periodic maintenance jobs on top of gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/m3rciful/stickerbot/core/logger"
)

// Scheduler owns a gocron scheduler and the context handed to its jobs.
type Scheduler struct {
	instance gocron.Scheduler
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a stopped scheduler.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{instance: s, ctx: ctx, cancel: cancel}, nil
}

// Every registers job to run each interval. Runs never overlap; a run that is
// still busy when the next one is due pushes it to the following slot.
func (s *Scheduler) Every(name string, interval time.Duration, job func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: job %s: interval must be > 0", name)
	}
	_, err := s.instance.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(name, job) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler: add job %s: %w", name, err)
	}
	logger.Info(s.ctx, "scheduler", "job.added",
		slog.String("job", name),
		slog.Duration("interval", interval),
	)
	return nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	start := time.Now()
	if err := job(s.ctx); err != nil {
		logger.Warn(s.ctx, "scheduler", "job.fail",
			slog.String("job", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return
	}
	logger.Debug(s.ctx, "scheduler", "job.ok",
		slog.String("job", name),
		slog.Duration("duration", logger.Took(start)),
	)
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.instance.Start()
	logger.Info(s.ctx, "scheduler", "started", slog.Int("jobs", len(s.instance.Jobs())))
}

// Stop cancels running jobs' context and waits for them to return.
func (s *Scheduler) Stop() error {
	s.cancel()
	if err := s.instance.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	return nil
}
