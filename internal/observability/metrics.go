// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	StageOutcomes     *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec

	// Acquisition metrics
	FilesUploaded prometheus.Counter

	// Integrity metrics
	RowsValidated     prometheus.Counter
	SizeChangePercent prometheus.Gauge

	// Store metrics
	StoreWriteErrors *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPromotion prometheus.Gauge
	LastRun                 prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "binranges"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StageOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "outcomes_total",
			Help:      "Total number of stage verdicts by stage and outcome",
		}, []string{"stage", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Acquisition metrics
		FilesUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "files_uploaded_total",
			Help:      "Total number of remote files uploaded to staging",
		}),

		// Integrity metrics
		RowsValidated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "rows_validated_total",
			Help:      "Total number of detail rows validated",
		}),
		SizeChangePercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "size_change_percent",
			Help:      "Size change of the last candidate against the promoted file, in percent",
		}),

		// Store metrics
		StoreWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_errors_total",
			Help:      "Total number of run ledger and event log write errors",
		}, []string{"store"}),

		// Health metrics
		LastSuccessfulPromotion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_promotion_timestamp_seconds",
			Help:      "Unix timestamp of the last promotion",
		}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last finished pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler for a custom registry.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordStage records one stage verdict.
func (m *Metrics) RecordStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageOutcomes.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records a finished pipeline run.
func (m *Metrics) RecordRun(outcome string, d time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(d.Seconds())
	m.LastRun.Set(float64(finishedAt.Unix()))
	if outcome == "promoted" {
		m.LastSuccessfulPromotion.Set(float64(finishedAt.Unix()))
	}
}

// RecordFilesUploaded adds n staged uploads.
func (m *Metrics) RecordFilesUploaded(n int) {
	if m == nil {
		return
	}
	m.FilesUploaded.Add(float64(n))
}

// RecordRowsValidated adds n validated detail rows.
func (m *Metrics) RecordRowsValidated(n int) {
	if m == nil {
		return
	}
	m.RowsValidated.Add(float64(n))
}

// RecordSizeChange sets the last observed size change percentage.
func (m *Metrics) RecordSizeChange(pct float64) {
	if m == nil {
		return
	}
	m.SizeChangePercent.Set(pct)
}

// RecordStoreError counts a failed ledger or event write.
func (m *Metrics) RecordStoreError(store string) {
	if m == nil {
		return
	}
	m.StoreWriteErrors.WithLabelValues(store).Inc()
}
