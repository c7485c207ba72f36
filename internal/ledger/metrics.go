package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for reconciliation. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Reconciliations by operation and outcome kind
	Reconciliations *prometheus.CounterVec

	ReconcileLatency *prometheus.HistogramVec

	// Deltas floored at zero, by resource type
	ClampedDeltas *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_ledger_reconciliations_total",
			Help: "Donation reconciliations by operation and outcome",
		}, []string{"op", "outcome"}),

		ReconcileLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relief_ledger_reconcile_duration_seconds",
			Help:    "Duration of a reconciliation unit of work including lock waits",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),

		ClampedDeltas: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relief_ledger_clamped_deltas_total",
			Help: "Stock deltas that would have driven a bucket negative",
		}, []string{"resource_type"}),
	}
}

func (m *Metrics) observe(op string, err error, d time.Duration) {
	if m != nil {
		m.Reconciliations.WithLabelValues(op, Kind(err)).Inc()
		m.ReconcileLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

func (m *Metrics) clamped(resourceType string) {
	if m != nil {
		m.ClampedDeltas.WithLabelValues(resourceType).Inc()
	}
}
