package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the adjudication module.
type Metrics struct {
	// Verdicts by verdict and deviation type
	Verdicts *prometheus.CounterVec

	// Evidence retrieval/scoring latencies by stage
	EvidenceLatency *prometheus.HistogramVec

	// Snippets retained per deviation after dedup
	SnippetsPerDeviation prometheus.Histogram
}

// New creates a Metrics instance with all adjudication metrics registered.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_adjudicate_verdicts_total",
			Help: "Total adjudication verdicts by verdict and deviation type",
		}, []string{"verdict", "deviation_type"}),

		EvidenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "debrief_adjudicate_evidence_duration_seconds",
			Help:    "Duration of evidence operations by stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}), // stage: "search", "score", "count"

		SnippetsPerDeviation: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "debrief_adjudicate_snippets_per_deviation",
			Help:    "Unique snippets retained per deviation after dedup",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
}

// IncrementVerdict records one adjudicated verdict.
func (m *Metrics) IncrementVerdict(verdict, deviationType string) {
	if m != nil {
		m.Verdicts.WithLabelValues(verdict, deviationType).Inc()
	}
}

// ObserveEvidenceLatency records the duration of one evidence stage call.
func (m *Metrics) ObserveEvidenceLatency(stage string, d time.Duration) {
	if m != nil {
		m.EvidenceLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveSnippetCount records how many snippets survived dedup.
func (m *Metrics) ObserveSnippetCount(n int) {
	if m != nil {
		m.SnippetsPerDeviation.Observe(float64(n))
	}
}
