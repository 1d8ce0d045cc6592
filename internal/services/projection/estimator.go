// Package projection estimates usage burn rate and time to limit.
package projection

import (
	"math"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// Params tunes the burn-rate regression.
type Params struct {
	Window   time.Duration // trailing regression window
	MinSpan  time.Duration // minimum oldest-to-newest span inside the window
	HalfLife time.Duration // exponential decay half-life of sample weights
	MaxETA   time.Duration // longer ETAs are not reported
	Epsilon  float64       // smallest usable normal-equations denominator
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		Window:   30 * time.Minute,
		MinSpan:  5 * time.Minute,
		HalfLife: 10 * time.Minute,
		MaxETA:   600 * time.Minute,
		Epsilon:  1e-10,
	}
}

// inWindow returns the samples at or after now-Window. samples must be
// ordered oldest first.
func inWindow(samples []models.Sample, now time.Time, window time.Duration) []models.Sample {
	cutoff := now.Add(-window)
	for i, s := range samples {
		if !s.Timestamp.Before(cutoff) {
			return samples[i:]
		}
	}
	return nil
}

// BurnRate fits pct against time over the trailing window with a
// recency-weighted least-squares line and returns its slope in %/minute.
// It reports false with fewer than two samples in the window, a span shorter
// than MinSpan, or a degenerate fit.
func BurnRate(samples []models.Sample, now time.Time, p Params) (float64, bool) {
	recent := inWindow(samples, now, p.Window)
	if len(recent) < 2 {
		return 0, false
	}

	if recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp) < p.MinSpan {
		return 0, false
	}

	// Timestamps are centered on their mean.
	origin := recent[0].Timestamp
	var mean float64
	for _, s := range recent {
		mean += s.Timestamp.Sub(origin).Seconds()
	}
	mean /= float64(len(recent))

	decay := math.Ln2 / p.HalfLife.Seconds()

	var sw, swt, swp, swtp, swt2 float64
	for _, s := range recent {
		tc := s.Timestamp.Sub(origin).Seconds() - mean
		age := now.Sub(s.Timestamp).Seconds()
		w := math.Exp(-decay * age)
		pct := float64(s.Pct)

		sw += w
		swt += w * tc
		swp += w * pct
		swtp += w * tc * pct
		swt2 += w * tc * tc
	}

	denom := sw*swt2 - swt*swt
	if math.Abs(denom) < p.Epsilon {
		return 0, false
	}
	slope := (sw*swtp - swt*swp) / denom // %/second
	return slope * 60, true
}

// ETA converts a burn rate into whole minutes until 100%. It reports false
// for flat or falling usage and for estimates beyond MaxETA. Usage already at
// or over the limit yields 0.
func ETA(currentPct int, rate float64, p Params) (int, bool) {
	if rate <= 0 {
		return 0, false
	}
	remaining := float64(100 - currentPct)
	if remaining <= 0 {
		return 0, true
	}
	eta := remaining / rate
	if eta > p.MaxETA.Minutes() {
		return 0, false
	}
	return max(1, int(math.Round(eta))), true
}
