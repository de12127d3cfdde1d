package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the comparison engine.
type Metrics struct {
	// Deviations detected per run, by type
	Deviations *prometheus.CounterVec

	// Full comparison latency
	CompareLatency prometheus.Histogram
}

// New creates a Metrics instance with all comparison metrics registered.
func New() *Metrics {
	return &Metrics{
		Deviations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_compare_deviations_total",
			Help: "Total raw deviations detected by type",
		}, []string{"type"}),

		CompareLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "debrief_compare_duration_seconds",
			Help:    "Duration of one graph comparison",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

// IncrementDeviation records one detected deviation.
func (m *Metrics) IncrementDeviation(deviationType string) {
	if m != nil {
		m.Deviations.WithLabelValues(deviationType).Inc()
	}
}

// ObserveCompareLatency records the duration of a full comparison.
func (m *Metrics) ObserveCompareLatency(d time.Duration) {
	if m != nil {
		m.CompareLatency.Observe(d.Seconds())
	}
}
