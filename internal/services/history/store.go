// Package history owns the per-key usage trend series and its durable sample
// log, including reset detection, pruning and daily rollups.
package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/db"
	"github.com/j-veylop/ai-quota-bar/internal/logger"
	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// SampleLog is the durable layer behind the trend series.
type SampleLog interface {
	InsertSample(s models.Sample) error
	SamplesSince(key models.Key, since time.Time) ([]models.Sample, error)
	Keys() ([]models.Key, error)
	Rollup(ctx context.Context, now time.Time, policy db.RetentionPolicy) (db.RollupResult, error)
	WeeklyStats(key models.Key, now time.Time) ([]models.DailyStat, error)
	DailyStatsSince(since time.Time) ([]models.DailyStat, error)
	TodayStats(now time.Time, threshold int) ([]models.DailyStat, error)
	LimitHitCount(key models.Key, now time.Time, threshold int) (int, error)
}

// Params tunes the store.
type Params struct {
	// ResetDropPct is the single-step drop that marks a quota reset.
	ResetDropPct int
	// MaxAge bounds the trend series.
	MaxAge    time.Duration
	Retention db.RetentionPolicy
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		ResetDropPct: 30,
		MaxAge:       24 * time.Hour,
		Retention: db.RetentionPolicy{
			LimitHitPct:        95,
			SampleRetention:    7 * 24 * time.Hour,
			DailyRetentionDays: 90,
		},
	}
}

// Store keeps a bounded, time-ordered sample series per key and mirrors every
// sample into the sample log. One mutex serializes all mutations; writes
// arrive at most once per key per poll.
type Store struct {
	mu     sync.Mutex
	series map[models.Key][]models.Sample
	path   string
	log    SampleLog
	params Params
}

// New creates an empty store persisting its trend series at path.
func New(path string, log SampleLog, params Params) *Store {
	return &Store{
		series: make(map[models.Key][]models.Sample),
		path:   path,
		log:    log,
		params: params,
	}
}

// Append records pct for key at now. Input is clamped to [0, 100]. A drop of
// at least ResetDropPct against the previous sample discards the key's series
// first. Afterwards every series is pruned to MaxAge.
//
// The in-memory series is always updated; the returned error only reports a
// failed write to the sample log.
func (s *Store) Append(key models.Key, pct int, now time.Time) error {
	pct = models.ClampPct(pct)

	s.mu.Lock()
	if prev, reset := s.appendLocked(key, pct, now); reset {
		logger.Info("usage reset detected", "key", key, "from", prev, "to", pct)
	}
	s.mu.Unlock()

	if err := s.log.InsertSample(models.Sample{Timestamp: now, Key: key, Pct: pct}); err != nil {
		return &PersistError{Op: "insert sample", Err: err}
	}
	return nil
}

func (s *Store) appendLocked(key models.Key, pct int, now time.Time) (prev int, reset bool) {
	entries := s.series[key]
	if n := len(entries); n > 0 {
		prev = entries[n-1].Pct
		if prev-pct >= s.params.ResetDropPct {
			entries = nil
			reset = true
		}
	}
	s.series[key] = append(entries, models.Sample{Timestamp: now, Key: key, Pct: pct})
	s.pruneLocked(now)
	return prev, reset
}

func (s *Store) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.params.MaxAge)
	for key, entries := range s.series {
		i := 0
		for i < len(entries) && entries[i].Timestamp.Before(cutoff) {
			i++
		}
		switch {
		case i == len(entries):
			delete(s.series, key)
		case i > 0:
			s.series[key] = slices.Clone(entries[i:])
		}
	}
}

// Snapshot returns a copy of key's series, oldest first.
func (s *Store) Snapshot(key models.Key) []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.series[key])
}

// Latest returns the most recent sample of key.
func (s *Store) Latest(key models.Key) (models.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.series[key]
	if len(entries) == 0 {
		return models.Sample{}, false
	}
	return entries[len(entries)-1], true
}

// Values returns the pct values of key's series, oldest first.
func (s *Store) Values(key models.Key) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.series[key]
	values := make([]int, len(entries))
	for i, e := range entries {
		values[i] = e.Pct
	}
	return values
}

// Keys returns the keys with a non-empty series, sorted.
func (s *Store) Keys() []models.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]models.Key, 0, len(s.series))
	for k := range s.series {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Rebuild replaces the trend series with the sample log's last MaxAge,
// replaying reset detection. Used when the trend file is lost or corrupt.
func (s *Store) Rebuild(now time.Time) error {
	keys, err := s.log.Keys()
	if err != nil {
		return &PersistError{Op: "rebuild", Err: err}
	}

	since := now.Add(-s.params.MaxAge)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[models.Key][]models.Sample)
	for _, key := range keys {
		samples, err := s.log.SamplesSince(key, since)
		if err != nil {
			return &PersistError{Op: "rebuild", Err: err}
		}
		for _, smp := range samples {
			s.appendLocked(key, smp.Pct, smp.Timestamp)
		}
	}
	s.pruneLocked(now)
	return nil
}

// Rollup aggregates closed days and applies retention.
func (s *Store) Rollup(ctx context.Context, now time.Time) (db.RollupResult, error) {
	return s.log.Rollup(ctx, now, s.params.Retention)
}

// WeeklyStats returns key's daily stats from the last 7 days, oldest first.
func (s *Store) WeeklyStats(key models.Key, now time.Time) ([]models.DailyStat, error) {
	return s.log.WeeklyStats(key, now)
}

// LimitHitCount returns how many samples of key reached the limit-hit
// threshold in the last 7 days, including today's raw samples.
func (s *Store) LimitHitCount(key models.Key, now time.Time) (int, error) {
	return s.log.LimitHitCount(key, now, s.params.Retention.LimitHitPct)
}
