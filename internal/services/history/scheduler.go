package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
)

// RollupObserver is told about every finished rollup.
type RollupObserver func(res db.RollupResult, took time.Duration, err error)

// Scheduler runs Store.Rollup on a cron schedule and once at start.
type Scheduler struct {
	store    *Store
	cron     *cron.Cron
	spec     string
	observer RollupObserver
	now      func() time.Time
	mu       sync.Mutex
	running  bool
}

// NewScheduler validates spec (standard cron syntax or a descriptor such as
// "@hourly") and returns an idle scheduler.
func NewScheduler(store *Store, spec string, observer RollupObserver) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid rollup schedule %q: %w", spec, err)
	}
	return &Scheduler{
		store:    store,
		cron:     cron.New(),
		spec:     spec,
		observer: observer,
		now:      time.Now,
	}, nil
}

// Start runs one rollup immediately, then schedules the rest. The scheduler
// stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() { s.RunNow(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule rollup: %w", err)
	}

	go s.RunNow(ctx)

	s.cron.Start()
	s.running = true
	logger.Info("rollup scheduler started", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow performs one rollup and reports it to the observer.
func (s *Scheduler) RunNow(ctx context.Context) (db.RollupResult, error) {
	start := time.Now()
	res, err := s.store.Rollup(ctx, s.now())
	took := time.Since(start)

	if err != nil {
		logger.Error("rollup failed", "error", err)
	} else if res.StatsUpserted > 0 || res.SamplesPruned > 0 || res.StatsPruned > 0 {
		logger.Info("rollup completed",
			"days", res.Days,
			"stats", res.StatsUpserted,
			"samples_rolled", res.SamplesRolled,
			"samples_pruned", res.SamplesPruned,
			"stats_pruned", res.StatsPruned,
		)
	} else {
		logger.Debug("rollup completed, nothing to do")
	}

	if s.observer != nil {
		s.observer(res, took, err)
	}
	return res, err
}

// Stop stops the scheduler and waits for a running rollup to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	logger.Info("rollup scheduler stopped")
}

// NextRun returns the next scheduled rollup, or the zero time when idle.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
