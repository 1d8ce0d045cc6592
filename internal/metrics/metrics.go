// Package metrics exposes usage and history metrics on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-veylop/ai-quota-bar/internal/models"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Usage metrics.
	UsagePercent *prometheus.GaugeVec
	BurnRate     *prometheus.GaugeVec
	ETAMinutes   *prometheus.GaugeVec
	SamplesTotal *prometheus.CounterVec
	PollErrors   *prometheus.CounterVec

	// Rollup metrics.
	RollupsTotal   *prometheus.CounterVec
	RollupDuration prometheus.Histogram

	StartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		UsagePercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aqb_usage_percent",
			Help: "Latest usage percentage per key.",
		}, []string{"key"}),

		BurnRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aqb_burn_rate_percent_per_minute",
			Help: "Recency-weighted burn rate per key.",
		}, []string{"key"}),

		ETAMinutes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aqb_eta_minutes",
			Help: "Estimated minutes until the key reaches its limit.",
		}, []string{"key"}),

		SamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqb_samples_total",
			Help: "Total number of usage samples recorded.",
		}, []string{"key"}),

		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqb_poll_errors_total",
			Help: "Total number of failed provider polls.",
		}, []string{"provider"}),

		RollupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aqb_rollups_total",
			Help: "Total number of daily rollups.",
		}, []string{"result"}),

		RollupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aqb_rollup_duration_seconds",
			Help:    "Duration of daily rollups in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),

		StartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aqb_start_time_seconds",
			Help: "Unix timestamp when the process started.",
		}),
	}

	reg.MustRegister(
		m.UsagePercent,
		m.BurnRate,
		m.ETAMinutes,
		m.SamplesTotal,
		m.PollErrors,
		m.RollupsTotal,
		m.RollupDuration,
		m.StartTime,
	)
	m.StartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// ObserveSample records an appended sample.
func (m *Metrics) ObserveSample(key models.Key, pct int) {
	m.UsagePercent.WithLabelValues(string(key)).Set(float64(pct))
	m.SamplesTotal.WithLabelValues(string(key)).Inc()
}

// ObserveEstimate records a burn-rate estimate. Keys without a rate or ETA
// have the corresponding series removed.
func (m *Metrics) ObserveEstimate(est models.Estimate) {
	key := string(est.Key)
	if est.HasRate {
		m.BurnRate.WithLabelValues(key).Set(est.Rate)
	} else {
		m.BurnRate.DeleteLabelValues(key)
	}
	if est.HasETA {
		m.ETAMinutes.WithLabelValues(key).Set(float64(est.ETAMinutes))
	} else {
		m.ETAMinutes.DeleteLabelValues(key)
	}
}

// IncPollError counts a failed provider poll.
func (m *Metrics) IncPollError(provider string) {
	m.PollErrors.WithLabelValues(provider).Inc()
}

// ObserveRollup records a finished rollup.
func (m *Metrics) ObserveRollup(took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RollupsTotal.WithLabelValues(result).Inc()
	m.RollupDuration.Observe(took.Seconds())
}
