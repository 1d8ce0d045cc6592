package models

import (
	"strings"
	"time"
)

// TimeRange represents the selected history time range.
type TimeRange int

const (
	// TimeRange7Days shows the last 7 days of daily stats.
	TimeRange7Days TimeRange = iota
	// TimeRange30Days shows the last 30 days of daily stats.
	TimeRange30Days
	// TimeRange90Days shows the full daily retention window.
	TimeRange90Days
)

// String returns the display name for a time range.
func (t TimeRange) String() string {
	switch t {
	case TimeRange7Days:
		return "7 Days"
	case TimeRange30Days:
		return "30 Days"
	case TimeRange90Days:
		return "90 Days"
	default:
		return "Unknown"
	}
}

// Days returns the number of days for the time range.
func (t TimeRange) Days() int {
	switch t {
	case TimeRange7Days:
		return 7
	case TimeRange30Days:
		return 30
	case TimeRange90Days:
		return 90
	default:
		return 7
	}
}

// Next cycles to the next time range.
func (t TimeRange) Next() TimeRange {
	return (t + 1) % 3
}

// KeySummary aggregates daily stats of one key over a time range.
type KeySummary struct {
	Key       Key         `json:"key"`
	Days      []DailyStat `json:"days"`
	AvgPct    int         `json:"avgPct"`
	PeakPct   int         `json:"peakPct"`
	LimitHits int         `json:"limitHits"`
}

// HistoryOverview is the multi-key view over the daily stats table.
type HistoryOverview struct {
	Generated  time.Time    `json:"generated"`
	HighestDay string       `json:"highestDay,omitempty"`
	LowestDay  string       `json:"lowestDay,omitempty"`
	Keys       []KeySummary `json:"keys"`
	DayMax     []DayValue   `json:"dayMax"`
	HighestPct int          `json:"highestPct"`
	LowestPct  int          `json:"lowestPct"`
	AvgPct     int          `json:"avgPct"`
	TotalHits  int          `json:"totalHits"`
	TotalDays  int          `json:"totalDays"`
}

// DayValue is the highest average usage of any key on one day.
type DayValue struct {
	Date string `json:"date"`
	Pct  int    `json:"pct"`
}

// HasData returns true if the overview contains any day.
func (h *HistoryOverview) HasData() bool {
	return h != nil && h.TotalDays > 0
}

// Summary returns the summary for key, if present.
func (h *HistoryOverview) Summary(key Key) (KeySummary, bool) {
	if h == nil {
		return KeySummary{}, false
	}
	for _, s := range h.Keys {
		if s.Key == key {
			return s, true
		}
	}
	return KeySummary{}, false
}

// Summarize folds daily stats into a KeySummary. Days are kept in input order.
func Summarize(key Key, days []DailyStat) KeySummary {
	s := KeySummary{Key: key, Days: days}
	if len(days) == 0 {
		return s
	}
	sum := 0
	for _, d := range days {
		sum += d.AvgPct
		s.LimitHits += d.LimitHits
		if d.PeakPct > s.PeakPct {
			s.PeakPct = d.PeakPct
		}
	}
	s.AvgPct = roundDiv(sum, len(days))
	return s
}

func roundDiv(sum, n int) int {
	if n == 0 {
		return 0
	}
	return (2*sum + n) / (2 * n)
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width values as block characters. It returns an
// empty string with fewer than 3 points or when the values barely move.
func Sparkline(values []int, width int) string {
	return sparkline(values, width, 3)
}

// WeeklySparkline renders daily peaks, needing only two days.
func WeeklySparkline(days []DailyStat) string {
	peaks := make([]int, len(days))
	for i, d := range days {
		peaks[i] = d.PeakPct
	}
	return sparkline(peaks, 7, 2)
}

func sparkline(values []int, width, minPoints int) string {
	if len(values) < minPoints {
		return ""
	}
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span < 2 {
		return ""
	}

	var b strings.Builder
	top := len(sparkBlocks) - 1
	for _, v := range values {
		idx := (v - lo) * top / span
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
