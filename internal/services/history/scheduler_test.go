package history

import (
	"context"
	"testing"
	"time"

	"github.com/j-veylop/ai-quota-bar/internal/db"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := NewScheduler(s, "not a schedule", nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s, _ := newTestStore(t)
	mustAppend(t, s, "claude", 40, t0.AddDate(0, 0, -1))

	var observed db.RollupResult
	calls := 0
	sched, err := NewScheduler(s, "@hourly", func(res db.RollupResult, _ time.Duration, err error) {
		calls++
		observed = res
		if err != nil {
			t.Errorf("observer got error: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}
	sched.now = func() time.Time { return t0 }

	res, err := sched.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow() failed: %v", err)
	}
	if res.StatsUpserted != 1 || calls != 1 || observed != res {
		t.Errorf("res = %+v, observed = %+v, calls = %d", res, observed, calls)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s, _ := newTestStore(t)

	done := make(chan struct{}, 1)
	sched, err := NewScheduler(s, "@every 1h", func(db.RollupResult, time.Duration, error) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewScheduler() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("startup rollup did not run")
	}

	if next := sched.NextRun(); next.IsZero() {
		t.Error("NextRun() should be set while running")
	}

	sched.Stop()
	sched.Stop()
}
