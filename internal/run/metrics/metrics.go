// Package metrics exposes Prometheus metrics for run analysis. A nil
// *Metrics disables collection; every method is nil-safe.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Analyses        *prometheus.CounterVec
	AnalysisLatency prometheus.Histogram
	ComplianceScore prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Analyses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_run_analyses_total",
			Help: "Completed run analyses by outcome.",
		}, []string{"outcome"}),
		AnalysisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "debrief_run_analysis_duration_seconds",
			Help:    "End to end analysis latency.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ComplianceScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "debrief_run_compliance_score",
			Help:    "Distribution of computed compliance scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

func (m *Metrics) IncrementAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAnalysisDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveComplianceScore(score float64) {
	if m == nil {
		return
	}
	m.ComplianceScore.Observe(score)
}
