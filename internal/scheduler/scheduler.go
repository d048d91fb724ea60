// Package scheduler runs periodic background jobs in-process.
//
// The only job today is the monthly credit reset, driven on a daily tick.
// An external cron hitting the admin trigger endpoint is equivalent; both
// paths go through ResetService.RunReset, which is idempotent within a
// reset window.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bookshelfai/bookshelfai/internal/service"
)

// Config holds the scheduler configuration.
type Config struct {
	// Interval is how often the reset job runs. Daily is plenty: the
	// job selects only entries whose reset date has passed.
	Interval time.Duration

	// JobTimeout bounds a single reset run.
	JobTimeout time.Duration
}

// Scheduler drives the periodic reset job.
type Scheduler struct {
	resets service.ResetService
	config Config
	logger *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a Scheduler. Start it with Start() and stop it with Stop().
func New(resets service.ResetService, config Config, logger *slog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = time.Minute
	}
	return &Scheduler{
		resets: resets,
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches the scheduler loop. It runs the reset once immediately so
// a restart never leaves lapsed entries waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("scheduler started", "interval", s.config.Interval)
}

// Stop signals the loop to exit and waits for any in-flight run.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.runOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	count, err := s.resets.RunReset(jobCtx, time.Now())
	if err != nil {
		s.logger.Error("scheduled reset failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("scheduled reset completed", "reset_count", count)
	}
}
