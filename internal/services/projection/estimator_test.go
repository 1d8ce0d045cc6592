package projection

import (
	"math"
	"testing"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// pt is a sample taken ago before now.
type pt struct {
	ago time.Duration
	pct int
}

func series(points ...pt) []models.Sample {
	out := make([]models.Sample, len(points))
	for i, p := range points {
		out[i] = models.Sample{Timestamp: now.Add(-p.ago), Key: "claude", Pct: p.pct}
	}
	return out
}

// linear rises perMinute each minute for minutes, ending at endPct now.
func linear(minutes, endPct, perMinute int) []models.Sample {
	var pts []pt
	for i := minutes; i >= 0; i-- {
		pts = append(pts, pt{time.Duration(i) * time.Minute, endPct - i*perMinute})
	}
	return series(pts...)
}

func TestBurnRate_Insufficient(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name    string
		samples []models.Sample
	}{
		{"empty", nil},
		{"single sample", series(pt{0, 50})},
		{"span too short", series(pt{2 * time.Minute, 40}, pt{0, 50})},
		{"only one in window", series(pt{45 * time.Minute, 10}, pt{0, 50})},
		{"all outside window", series(pt{50 * time.Minute, 10}, pt{40 * time.Minute, 20})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rate, ok := BurnRate(tt.samples, now, p); ok {
				t.Errorf("BurnRate() = %v, want no estimate", rate)
			}
		})
	}
}

func TestBurnRate_LinearData(t *testing.T) {
	rate, ok := BurnRate(linear(15, 50, 1), now, DefaultParams())
	if !ok {
		t.Fatal("expected an estimate")
	}
	if math.Abs(rate-1) > 1e-9 {
		t.Errorf("rate = %v, want 1", rate)
	}
}

func TestBurnRate_TwoPoints(t *testing.T) {
	samples := series(pt{10 * time.Minute, 20}, pt{0, 35})
	rate, ok := BurnRate(samples, now, DefaultParams())
	if !ok {
		t.Fatal("expected an estimate")
	}
	if math.Abs(rate-1.5) > 1e-9 {
		t.Errorf("rate = %v, want 1.5", rate)
	}
}

func TestBurnRate_RecentBurstDominates(t *testing.T) {
	// Flat for 20 minutes, then a 10-point jump over the last 5.
	var pts []pt
	for i := 25; i >= 5; i-- {
		pts = append(pts, pt{time.Duration(i) * time.Minute, 30})
	}
	pts = append(pts, pt{0, 40})
	weighted, ok := BurnRate(series(pts...), now, DefaultParams())
	if !ok {
		t.Fatal("expected an estimate")
	}

	flat := DefaultParams()
	flat.HalfLife = 1000 * time.Hour
	unweighted, _ := BurnRate(series(pts...), now, flat)

	if weighted <= unweighted {
		t.Errorf("weighted rate %v should exceed unweighted %v", weighted, unweighted)
	}
}

func TestBurnRate_Degenerate(t *testing.T) {
	p := DefaultParams()
	p.HalfLife = time.Nanosecond
	samples := series(pt{10 * time.Minute, 20}, pt{0, 35})
	if rate, ok := BurnRate(samples, now, p); ok {
		t.Errorf("BurnRate() = %v, want no estimate", rate)
	}
}

func TestBurnRate_LargeEpochIsStable(t *testing.T) {
	far := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		{Timestamp: far.Add(-10 * time.Minute), Pct: 20},
		{Timestamp: far, Pct: 35},
	}
	rate, ok := BurnRate(samples, far, DefaultParams())
	if !ok || math.Abs(rate-1.5) > 1e-9 {
		t.Errorf("BurnRate() = %v, %v; want 1.5", rate, ok)
	}
}

func TestETA(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		name    string
		current int
		rate    float64
		want    int
		wantOK  bool
	}{
		{"flat", 40, 0, 0, false},
		{"falling", 40, -0.5, 0, false},
		{"at limit", 100, 1, 0, true},
		{"over limit", 104, 1, 0, true},
		{"normal", 35, 1.5, 43, true},
		{"rounds up to one", 99, 5, 1, true},
		{"exactly ten hours", 40, 0.1, 600, true},
		{"beyond ten hours", 40, 0.09, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ETA(tt.current, tt.rate, p)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ETA(%d, %v) = %d, %v; want %d, %v", tt.current, tt.rate, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
