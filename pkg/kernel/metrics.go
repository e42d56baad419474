package kernel

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumentation tracks kernel validation outcomes. Counters are atomic
// ints for cheap in-process reads from K's own API, mirrored into
// Prometheus counters for external scraping — the kernel is the metrics
// producer here, the inverse of the teacher's Prometheus query client.
type Instrumentation struct {
	totalValidated uint64
	totalRejected  uint64
	byReason       map[ReasonCode]*uint64

	promTotal    *prometheus.CounterVec
	promRejected *prometheus.CounterVec
}

// NewInstrumentation creates an Instrumentation registry. If reg is nil, a
// fresh private prometheus.Registry is used so tests don't collide on the
// default global registry.
func NewInstrumentation(reg prometheus.Registerer) *Instrumentation {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	byReason := make(map[ReasonCode]*uint64)
	for _, r := range []ReasonCode{
		ReasonOK, ReasonLapsLedConservation, ReasonFastestLapsBudget,
		ReasonPositionPermutation, ReasonSalaryCap, ReasonTeamCap,
		ReasonVetoRule, ReasonLineupSize,
	} {
		var v uint64
		byReason[r] = &v
	}

	return &Instrumentation{
		byReason: byReason,
		promTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kernel_validations_total",
			Help: "Total kernel validation calls by outcome.",
		}, []string{"valid"}),
		promRejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kernel_rejections_total",
			Help: "Total kernel validation rejections by reason code.",
		}, []string{"reason"}),
	}
}

func (i *Instrumentation) record(res Result) {
	atomic.AddUint64(&i.totalValidated, 1)
	if counter, ok := i.byReason[res.Reason]; ok {
		atomic.AddUint64(counter, 1)
	}

	if res.Valid {
		i.promTotal.WithLabelValues("true").Inc()
		return
	}

	atomic.AddUint64(&i.totalRejected, 1)
	i.promTotal.WithLabelValues("false").Inc()
	i.promRejected.WithLabelValues(string(res.Reason)).Inc()
}

// TotalValidated returns the number of validation calls made so far.
func (i *Instrumentation) TotalValidated() uint64 {
	return atomic.LoadUint64(&i.totalValidated)
}

// TotalRejected returns the number of rejected validation calls so far.
func (i *Instrumentation) TotalRejected() uint64 {
	return atomic.LoadUint64(&i.totalRejected)
}

// RejectionCounts returns a snapshot of rejection counts by reason code,
// consumed by the Calibration Harness's generate_report.
func (i *Instrumentation) RejectionCounts() map[ReasonCode]uint64 {
	out := make(map[ReasonCode]uint64, len(i.byReason))
	for reason, counter := range i.byReason {
		out[reason] = atomic.LoadUint64(counter)
	}
	return out
}
