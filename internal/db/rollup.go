package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// RetentionPolicy controls rollup aggregation and pruning.
type RetentionPolicy struct {
	LimitHitPct        int
	SampleRetention    time.Duration
	DailyRetentionDays int
}

// RollupResult reports what one rollup pass changed.
type RollupResult struct {
	Days          int   // closed days aggregated
	StatsUpserted int   // daily_stats rows written
	SamplesRolled int64 // raw samples removed after aggregation
	SamplesPruned int64 // raw samples removed by the retention cutoff
	StatsPruned   int64 // daily_stats rows removed by the retention cutoff
}

const aggregateColumns = `
	key,
	MAX(pct),
	CAST(ROUND(AVG(pct)) AS INTEGER),
	SUM(CASE WHEN pct >= ? THEN 1 ELSE 0 END),
	COUNT(*)
`

// Rollup aggregates every UTC day before now's day that still has raw samples
// into daily_stats, deletes those samples, then applies both retention
// cutoffs. The whole pass runs in one transaction.
func (db *DB) Rollup(ctx context.Context, now time.Time, policy RetentionPolicy) (RollupResult, error) {
	var res RollupResult
	dayStart := startOfDayUTC(now)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin rollup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stats, err := aggregate(ctx, tx,
		"WHERE ts < ? GROUP BY date(ts, 'unixepoch'), key ORDER BY 1, key",
		policy.LimitHitPct, unixSeconds(dayStart))
	if err != nil {
		return res, err
	}

	upsert := `
		INSERT INTO daily_stats (date, key, peak_pct, avg_pct, limit_hits, samples)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, key) DO UPDATE SET
			peak_pct = excluded.peak_pct,
			avg_pct = excluded.avg_pct,
			limit_hits = excluded.limit_hits,
			samples = excluded.samples
	`
	days := make(map[string]struct{})
	for _, s := range stats {
		if _, err := tx.ExecContext(ctx, upsert,
			s.Date, string(s.Key), s.PeakPct, s.AvgPct, s.LimitHits, s.Samples); err != nil {
			return res, fmt.Errorf("failed to upsert daily stat %s/%s: %w", s.Date, s.Key, err)
		}
		days[s.Date] = struct{}{}
	}
	res.Days = len(days)
	res.StatsUpserted = len(stats)

	if res.SamplesRolled, err = execCount(ctx, tx,
		"DELETE FROM samples WHERE ts < ?", unixSeconds(dayStart)); err != nil {
		return res, fmt.Errorf("failed to delete rolled-up samples: %w", err)
	}

	sampleCutoff := now.Add(-policy.SampleRetention)
	if res.SamplesPruned, err = execCount(ctx, tx,
		"DELETE FROM samples WHERE ts < ?", unixSeconds(sampleCutoff)); err != nil {
		return res, fmt.Errorf("failed to prune samples: %w", err)
	}

	statsCutoff := dateString(now.AddDate(0, 0, -policy.DailyRetentionDays))
	if res.StatsPruned, err = execCount(ctx, tx,
		"DELETE FROM daily_stats WHERE date < ?", statsCutoff); err != nil {
		return res, fmt.Errorf("failed to prune daily stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit rollup: %w", err)
	}
	return res, nil
}

// WeeklyStats returns the daily stats of key from the last 7 days, oldest first.
func (db *DB) WeeklyStats(key models.Key, now time.Time) ([]models.DailyStat, error) {
	query := `
		SELECT date, key, peak_pct, avg_pct, limit_hits, samples
		FROM daily_stats
		WHERE key = ? AND date >= ?
		ORDER BY date
	`
	return db.queryDailyStats(query, string(key), dateString(now.AddDate(0, 0, -7)))
}

// DailyStatsSince returns all daily stats dated on or after since, ordered by
// date then key.
func (db *DB) DailyStatsSince(since time.Time) ([]models.DailyStat, error) {
	query := `
		SELECT date, key, peak_pct, avg_pct, limit_hits, samples
		FROM daily_stats
		WHERE date >= ?
		ORDER BY date, key
	`
	return db.queryDailyStats(query, dateString(since))
}

// LimitHitCount counts samples at or above threshold over the last 7 days,
// combining rolled-up days with raw samples not yet rolled up.
func (db *DB) LimitHitCount(key models.Key, now time.Time, threshold int) (int, error) {
	cutoff := now.AddDate(0, 0, -7)

	var rolled int
	err := db.QueryRowContext(context.Background(),
		"SELECT COALESCE(SUM(limit_hits), 0) FROM daily_stats WHERE key = ? AND date >= ?",
		string(key), dateString(cutoff),
	).Scan(&rolled)
	if err != nil {
		return 0, fmt.Errorf("failed to count rolled-up limit hits: %w", err)
	}

	var raw int
	err = db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM samples WHERE key = ? AND pct >= ? AND ts >= ?",
		string(key), threshold, unixSeconds(cutoff),
	).Scan(&raw)
	if err != nil {
		return 0, fmt.Errorf("failed to count raw limit hits: %w", err)
	}

	return rolled + raw, nil
}

// TodayStats aggregates the raw samples of now's UTC day per key. These rows
// are live and are not stored.
func (db *DB) TodayStats(now time.Time, threshold int) ([]models.DailyStat, error) {
	dayStart := startOfDayUTC(now)
	return aggregate(context.Background(), db,
		"WHERE ts >= ? AND ts < ? GROUP BY date(ts, 'unixepoch'), key ORDER BY key",
		threshold, unixSeconds(dayStart), unixSeconds(dayStart.AddDate(0, 0, 1)))
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func aggregate(ctx context.Context, q querier, clause string, threshold int, args ...any) ([]models.DailyStat, error) {
	query := "SELECT date(ts, 'unixepoch')," + aggregateColumns + "FROM samples " + clause

	rows, err := q.QueryContext(ctx, query, append([]any{threshold}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []models.DailyStat
	for rows.Next() {
		var s models.DailyStat
		var key string
		if err := rows.Scan(&s.Date, &key, &s.PeakPct, &s.AvgPct, &s.LimitHits, &s.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		s.Key = models.Key(key)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (db *DB) queryDailyStats(query string, args ...any) ([]models.DailyStat, error) {
	rows, err := db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []models.DailyStat
	for rows.Next() {
		var s models.DailyStat
		var key string
		if err := rows.Scan(&s.Date, &key, &s.PeakPct, &s.AvgPct, &s.LimitHits, &s.Samples); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		s.Key = models.Key(key)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func execCount(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateString(t time.Time) string {
	return t.UTC().Format(models.DateLayout)
}
