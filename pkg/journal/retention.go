package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler prunes journal entries older than MaxAge on a cron schedule.
type Scheduler struct {
	store    Store
	maxAge   time.Duration
	schedule string
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. schedule is a standard five-field cron
// expression; an empty schedule or non-positive maxAge disables pruning.
func NewScheduler(store Store, maxAge time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		maxAge:   maxAge,
		schedule: schedule,
		now:      time.Now,
		cron:     cron.New(),
		logger:   logger.With("component", "journal.retention"),
	}
}

// Start registers the pruning job and starts the cron runner. The scheduler
// stops when ctx is cancelled.
//
// Common cron expressions:
//   - "0 * * * *"    - Hourly
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.maxAge <= 0 {
		s.logger.Info("journal retention not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("journal retention scheduler started",
		"schedule", s.schedule,
		"max_age", s.maxAge,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// PruneNow deletes entries older than MaxAge immediately.
func (s *Scheduler) PruneNow(ctx context.Context) (int64, error) {
	return s.store.Prune(ctx, s.now().Add(-s.maxAge))
}

func (s *Scheduler) run(ctx context.Context) {
	deleted, err := s.PruneNow(ctx)
	if err != nil {
		s.logger.Error("scheduled journal pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("scheduled journal pruning completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled journal pruning completed, no entries deleted")
	}
}

// Stop stops the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("journal retention scheduler stopped")
	}
}

// IsRunning reports whether the cron runner is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled pruning time, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
