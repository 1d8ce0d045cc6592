package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

func TestObserveSample(t *testing.T) {
	m := New()

	m.ObserveSample("claude", 40)
	m.ObserveSample("claude", 42)

	if got := testutil.ToFloat64(m.UsagePercent.WithLabelValues("claude")); got != 42 {
		t.Errorf("usage = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.SamplesTotal.WithLabelValues("claude")); got != 2 {
		t.Errorf("samples = %v, want 2", got)
	}
}

func TestObserveEstimate_RemovesUnknown(t *testing.T) {
	m := New()

	m.ObserveEstimate(models.Estimate{Key: "claude", Rate: 1.5, HasRate: true, ETAMinutes: 43, HasETA: true})
	if got := testutil.ToFloat64(m.ETAMinutes.WithLabelValues("claude")); got != 43 {
		t.Errorf("eta = %v, want 43", got)
	}

	m.ObserveEstimate(models.Estimate{Key: "claude"})
	if n := testutil.CollectAndCount(m.ETAMinutes); n != 0 {
		t.Errorf("eta series = %d, want 0", n)
	}
	if n := testutil.CollectAndCount(m.BurnRate); n != 0 {
		t.Errorf("burn rate series = %d, want 0", n)
	}
}

func TestObserveRollup(t *testing.T) {
	m := New()

	m.ObserveRollup(20*time.Millisecond, nil)
	m.ObserveRollup(time.Millisecond, errors.New("locked"))

	if got := testutil.ToFloat64(m.RollupsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok rollups = %v", got)
	}
	if got := testutil.ToFloat64(m.RollupsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("failed rollups = %v", got)
	}
	if n := testutil.CollectAndCount(m.RollupDuration); n != 1 {
		t.Errorf("histogram series = %d", n)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveSample("cursor", 12)
	m.IncPollError("cursor")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`aqb_usage_percent{key="cursor"} 12`,
		`aqb_poll_errors_total{provider="cursor"} 1`,
		"aqb_start_time_seconds",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
