package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.AnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by outcome (clear, warning or an error kind)",
		},
		[]string{"outcome"},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one load-and-analyse run",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	r.RecordsPerAnalysis = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_analysis",
			Help:      "Number of records in each successful analysis",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	r.FlaggedClusters = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flagged_clusters",
			Help:      "Clusters in the latest report, by severity",
		},
		[]string{"severity"},
	)

	r.FlaggedRecords = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flagged_records",
			Help:      "Records inside a flagged cluster in the latest report",
		},
	)

	r.IntegrityScore = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "integrity_score",
			Help:      "Integrity score of the latest report (0-100)",
		},
	)

	r.LastSuccessTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the latest successful analysis",
		},
	)
}
