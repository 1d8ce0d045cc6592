package history

import (
	"context"
	"testing"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

func TestOverview_Empty(t *testing.T) {
	s, _ := newTestStore(t)

	ov, err := s.Overview(t0, 90)
	if err != nil {
		t.Fatalf("Overview() failed: %v", err)
	}
	if ov.HasData() {
		t.Errorf("expected no data, got %+v", ov)
	}
}

func TestOverview_MergesTodayAndPast(t *testing.T) {
	s, _ := newTestStore(t)

	day1 := t0.AddDate(0, 0, -2)
	day2 := t0.AddDate(0, 0, -1)
	mustAppend(t, s, "claude", 20, day1)
	mustAppend(t, s, "claude", 40, day1.Add(time.Minute))
	mustAppend(t, s, "cursor", 70, day1)
	mustAppend(t, s, "claude", 96, day2)
	if _, err := s.Rollup(context.Background(), t0); err != nil {
		t.Fatalf("Rollup() failed: %v", err)
	}
	mustAppend(t, s, "claude", 10, t0.Add(-time.Hour))

	ov, err := s.Overview(t0, 90)
	if err != nil {
		t.Fatalf("Overview() failed: %v", err)
	}

	if ov.TotalDays != 3 {
		t.Errorf("TotalDays = %d, want 3", ov.TotalDays)
	}
	wantDays := []models.DayValue{
		{Date: "2026-10-12", Pct: 70},
		{Date: "2026-10-13", Pct: 96},
		{Date: "2026-10-14", Pct: 10},
	}
	for i, w := range wantDays {
		if ov.DayMax[i] != w {
			t.Errorf("DayMax[%d] = %+v, want %+v", i, ov.DayMax[i], w)
		}
	}
	if ov.HighestDay != "2026-10-13" || ov.HighestPct != 96 {
		t.Errorf("highest = %s %d", ov.HighestDay, ov.HighestPct)
	}
	if ov.LowestDay != "2026-10-14" || ov.LowestPct != 10 {
		t.Errorf("lowest = %s %d", ov.LowestDay, ov.LowestPct)
	}
	if ov.AvgPct != 59 {
		t.Errorf("AvgPct = %d, want 59", ov.AvgPct)
	}
	if ov.TotalHits != 1 {
		t.Errorf("TotalHits = %d, want 1", ov.TotalHits)
	}

	claude, ok := ov.Summary("claude")
	if !ok {
		t.Fatal("missing claude summary")
	}
	if len(claude.Days) != 3 || claude.PeakPct != 96 {
		t.Errorf("claude summary = %+v", claude)
	}
	if len(ov.Keys) != 2 || ov.Keys[0].Key != "claude" {
		t.Errorf("Keys = %+v", ov.Keys)
	}
}
