package models

import (
	"strings"
	"time"
)

// Key identifies one tracked quota dimension. Each key owns its own sample
// series, regression and reset detection state.
type Key string

// NewKey builds the key for a provider limit. Providers exposing a single
// limit are tracked under the provider key alone; otherwise the limit label is
// appended so sub-limits of different providers never collide.
func NewKey(providerKey, label string) Key {
	providerKey = strings.ToLower(strings.TrimSpace(providerKey))
	if label == "" {
		return Key(providerKey)
	}
	return Key(providerKey + "_" + snake(label))
}

// String returns the raw key.
func (k Key) String() string {
	return string(k)
}

// Provider returns the provider prefix of the key.
func (k Key) Provider() string {
	s := string(k)
	if i := strings.IndexByte(s, '_'); i >= 0 {
		return s[:i]
	}
	return s
}

// Label returns a human readable label, e.g. "chatgpt_weekly" -> "ChatGPT Weekly".
func (k Key) Label() string {
	parts := strings.Split(string(k), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if name, ok := knownNames[p]; ok {
			parts[i] = name
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

var knownNames = map[string]string{
	"chatgpt": "ChatGPT",
	"api":     "API",
	"glm":     "GLM",
}

func snake(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

// Sample is one observed usage percentage for a key at a point in time.
type Sample struct {
	Timestamp time.Time `json:"ts"`
	Key       Key       `json:"-"`
	Pct       int       `json:"pct"`
}

// DailyStat is the aggregate of one closed calendar day of samples for a key.
type DailyStat struct {
	Date      string `json:"date"` // YYYY-MM-DD (UTC)
	Key       Key    `json:"key"`
	PeakPct   int    `json:"peakPct"`
	AvgPct    int    `json:"avgPct"`
	LimitHits int    `json:"limitHits"`
	Samples   int    `json:"samples"`
}

// DateLayout is the storage format of DailyStat.Date.
const DateLayout = "2006-01-02"

// Day returns the parsed date, or the zero time if it is malformed.
func (d DailyStat) Day() time.Time {
	t, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ClampPct bounds a percentage to [0, 100].
func ClampPct(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
