package models

import (
	"fmt"
	"time"
)

// ProjectionStatus indicates urgency level for quota depletion.
type ProjectionStatus string

const (
	ProjectionSafe     ProjectionStatus = "SAFE"
	ProjectionWarning  ProjectionStatus = "WARNING"
	ProjectionCritical ProjectionStatus = "CRITICAL"
	ProjectionUnknown  ProjectionStatus = "UNKNOWN"
)

// Estimate is the burn-rate projection for one key at one instant.
type Estimate struct {
	At         time.Time `json:"at"`
	Key        Key       `json:"key"`
	Rate       float64   `json:"rate"` // %/min, positive while usage grows
	CurrentPct int       `json:"currentPct"`
	ETAMinutes int       `json:"etaMinutes"`
	Samples    int       `json:"samples"` // samples inside the regression window
	HasRate    bool      `json:"hasRate"`
	HasETA     bool      `json:"hasEta"`
}

// Status classifies the estimate against the pacing threshold.
func (e Estimate) Status(pacing time.Duration) ProjectionStatus {
	if !e.HasETA {
		if e.HasRate {
			return ProjectionSafe
		}
		return ProjectionUnknown
	}
	limit := int(pacing / time.Minute)
	switch {
	case e.ETAMinutes <= limit/2:
		return ProjectionCritical
	case e.ETAMinutes <= limit:
		return ProjectionWarning
	default:
		return ProjectionSafe
	}
}

// ETAText renders "Limit in ~X", or an empty string when there is no ETA.
func (e Estimate) ETAText() string {
	if !e.HasETA {
		return ""
	}
	if e.ETAMinutes == 0 {
		return "At limit"
	}
	return "Limit in ~" + FormatETA(e.ETAMinutes)
}

// FormatETA renders minutes as "47 min", "1h 30 min" or "6h 0 min".
func FormatETA(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %d min", minutes/60, minutes%60)
}
