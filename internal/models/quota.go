// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"time"
)

// LimitRow is one usage limit reported by a provider.
type LimitRow struct {
	ResetAt time.Time `json:"resetAt,omitempty"`
	Label   string    `json:"label"`
	Pct     int       `json:"pct"`
}

// ProviderUsage is the result of polling one provider.
type ProviderUsage struct {
	FetchedAt   time.Time  `json:"fetchedAt"`
	Provider    string     `json:"provider"`
	ProviderKey string     `json:"providerKey"`
	Error       string     `json:"error,omitempty"`
	Rows        []LimitRow `json:"rows"`
}

// RowKey returns the history key for a row of this provider.
func (u *ProviderUsage) RowKey(row LimitRow) Key {
	if len(u.Rows) <= 1 {
		return NewKey(u.ProviderKey, "")
	}
	return NewKey(u.ProviderKey, row.Label)
}

// MaxPct returns the highest percentage across rows, or -1 if there are none.
func (u *ProviderUsage) MaxPct() int {
	pct := -1
	for _, r := range u.Rows {
		if r.Pct > pct {
			pct = r.Pct
		}
	}
	return pct
}

// KeyStatus is the current state of one key as rendered on the dashboard.
type KeyStatus struct {
	ResetAt  time.Time `json:"resetAt,omitempty"`
	Key      Key       `json:"key"`
	Provider string    `json:"provider"`
	Label    string    `json:"label"`
	Estimate Estimate  `json:"estimate"`
	Trend    []int     `json:"trend,omitempty"`
	Pct      int       `json:"pct"`
}

var weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ResetText describes when a limit resets relative to now, e.g.
// "resets in 1h 23m" or "resets Thu 00:00". Resets more than 20 hours away
// are shown as a UTC weekday and time.
func ResetText(resetAt, now time.Time) string {
	if resetAt.IsZero() {
		return ""
	}
	d := resetAt.Sub(now)
	if d <= 0 {
		return "resets soon"
	}
	if d < 20*time.Hour {
		h := int(d / time.Hour)
		m := int(d%time.Hour) / int(time.Minute)
		if h > 0 {
			return fmt.Sprintf("resets in %dh %dm", h, m)
		}
		return fmt.Sprintf("resets in %dm", m)
	}
	utc := resetAt.UTC()
	return fmt.Sprintf("resets %s %s", weekdays[utc.Weekday()], utc.Format("15:04"))
}
