package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// ErrCorrupt marks a trend file that exists but cannot be decoded. The store
// stays empty; callers usually log it and call Rebuild.
var ErrCorrupt = errors.New("history file corrupt")

// PersistError reports a failed read or write of persisted history.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("history %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("history %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// fileEntry is one sample in the trend file: {"t": <unix seconds>, "pct": n}.
type fileEntry struct {
	T   float64 `json:"t"`
	Pct int     `json:"pct"`
}

// Load replaces the trend series with the contents of the trend file. A
// missing file is not an error. On any error the series is left empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series = make(map[models.Key][]models.Sample)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &PersistError{Op: "read", Path: s.path, Err: err}
	}

	var raw map[string][]fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return &PersistError{Op: "decode", Path: s.path, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}

	for k, entries := range raw {
		key := models.Key(k)
		series := make([]models.Sample, 0, len(entries))
		for _, e := range entries {
			series = append(series, models.Sample{Timestamp: fromUnix(e.T), Key: key, Pct: models.ClampPct(e.Pct)})
		}
		slices.SortStableFunc(series, func(a, b models.Sample) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		if len(series) > 0 {
			s.series[key] = series
		}
	}
	return nil
}

// Save writes the trend series atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	raw := make(map[string][]fileEntry, len(s.series))
	for key, entries := range s.series {
		out := make([]fileEntry, len(entries))
		for i, e := range entries {
			out[i] = fileEntry{T: toUnix(e.Timestamp), Pct: e.Pct}
		}
		raw[string(key)] = out
	}
	s.mu.Unlock()

	data, err := json.Marshal(raw)
	if err != nil {
		return &PersistError{Op: "encode", Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return &PersistError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnix(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3)
}
