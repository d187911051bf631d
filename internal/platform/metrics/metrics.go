package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ReportsIngested    prometheus.Counter
	ReportsDuplicate   prometheus.Counter
	ReportsRejected    prometheus.Counter
	IngestFailures     prometheus.Counter
	EntitiesInserted   *prometheus.CounterVec
	IngestDuration     prometheus.Histogram
	InsightsDetected   *prometheus.CounterVec
	AnalysisRuns       prometheus.Counter
	AnalysisDuration   prometheus.Histogram
	RuleFailures       *prometheus.CounterVec
	AuditEventsDropped prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ReportsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditwatch_reports_ingested_total",
			Help: "Credit-report payloads ingested successfully",
		}),
		ReportsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditwatch_reports_duplicate_total",
			Help: "Payloads resolved as duplicates by content hash",
		}),
		ReportsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditwatch_reports_rejected_total",
			Help: "Payloads rejected by schema validation",
		}),
		IngestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditwatch_ingest_failures_total",
			Help: "Ingestions aborted by storage errors after rollback",
		}),
		EntitiesInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditwatch_entities_inserted_total",
			Help: "Timeline entities inserted, by entity type",
		}, []string{"entity"}),
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditwatch_ingest_duration_seconds",
			Help:    "End-to-end ingestion latency",
			Buckets: prometheus.DefBuckets,
		}),
		InsightsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditwatch_insights_detected_total",
			Help: "Anomaly insights emitted, by rule and severity",
		}, []string{"rule", "severity"}),
		AnalysisRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditwatch_analysis_runs_total",
			Help: "Anomaly analysis runs completed",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditwatch_analysis_duration_seconds",
			Help:    "Anomaly analysis latency",
			Buckets: prometheus.DefBuckets,
		}),
		RuleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditwatch_rule_failures_total",
			Help: "Rule evaluations that panicked and were isolated",
		}, []string{"rule"}),
		AuditEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditwatch_audit_events_dropped_total",
			Help: "Audit events dropped because the sink rejected them",
		}),
	}
}
