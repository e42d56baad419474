package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunMetrics exposes run-level Prometheus instrumentation: duration
// histograms and per-phase gauges, produced rather than queried (the
// teacher's prometheus package only ever queried an external server).
type RunMetrics struct {
	runDuration *prometheus.HistogramVec
	activeRuns  *prometheus.GaugeVec
}

// NewRunMetrics registers run metrics against reg. A nil reg uses a fresh
// private registry, the same as kernel.NewInstrumentation.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &RunMetrics{
		runDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "run_duration_seconds",
			Help:    "Run duration in seconds by terminal status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		activeRuns: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "active_runs",
			Help: "Number of runs currently in each phase.",
		}, []string{"phase"}),
	}
}

// ObserveRunDuration records a completed run's wall-clock duration.
func (m *RunMetrics) ObserveRunDuration(status RunStatus, seconds float64) {
	m.runDuration.WithLabelValues(string(status)).Observe(seconds)
}

// SetPhaseActive marks one run as entering (delta=+1) or leaving (delta=-1)
// a phase.
func (m *RunMetrics) SetPhaseActive(phase RunPhase, delta float64) {
	m.activeRuns.WithLabelValues(string(phase)).Add(delta)
}
