package db

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// InsertSample appends one sample to the sample log.
func (db *DB) InsertSample(s models.Sample) error {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := db.ExecContext(context.Background(),
		"INSERT INTO samples (ts, key, pct) VALUES (?, ?, ?)",
		unixSeconds(ts), string(s.Key), s.Pct,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// SamplesSince returns the logged samples of key at or after since, oldest first.
func (db *DB) SamplesSince(key models.Key, since time.Time) ([]models.Sample, error) {
	query := `
		SELECT ts, pct FROM samples
		WHERE key = ? AND ts >= ?
		ORDER BY ts
	`

	rows, err := db.QueryContext(context.Background(), query, string(key), unixSeconds(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []models.Sample
	for rows.Next() {
		var ts float64
		s := models.Sample{Key: key}
		if err := rows.Scan(&ts, &s.Pct); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Timestamp = fromUnixSeconds(ts)
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// Keys returns every key present in either table, sorted.
func (db *DB) Keys() ([]models.Key, error) {
	query := `
		SELECT key FROM samples
		UNION
		SELECT key FROM daily_stats
		ORDER BY key
	`

	rows, err := db.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []models.Key
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, models.Key(k))
	}

	return keys, rows.Err()
}

// CountSamples returns the number of rows in the sample log.
func (db *DB) CountSamples() (int, error) {
	var n int
	err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM samples").Scan(&n)
	return n, err
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3)
}
