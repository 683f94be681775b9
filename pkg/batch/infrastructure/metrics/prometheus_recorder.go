// Package metrics implements the metric recorder with Prometheus and the tracer with OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	config "github.com/tigerroll/ridership/pkg/batch/core/config"
	metrics "github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// PrometheusRecorder is the Prometheus implementation of metrics.MetricRecorder.
// It owns its registry. With a textfile path configured, Flush writes the registry
// in the node_exporter textfile format.
type PrometheusRecorder struct {
	registry     *prometheus.Registry
	textfilePath string

	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	rowsCounter         *prometheus.CounterVec
	droppedLabels       *prometheus.CounterVec
	persistenceSkips    *prometheus.CounterVec
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a recorder with Go and process collectors registered.
func NewPrometheusRecorder(cfg config.MetricsConfig) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := cfg.Namespace
	r := &PrometheusRecorder{
		registry:     registry,
		textfilePath: cfg.TextfilePath,
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "step_duration_seconds",
			Help:      "Duration of pipeline step executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "step_status_total",
			Help:      "Total number of pipeline step executions by status.",
		}, []string{"step", "status"}),
		rowsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "rows_total",
			Help:      "Rows handled by step and kind.",
		}, []string{"step", "kind"}),
		droppedLabels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "dropped_labels_total",
			Help:      "Categorical labels unseen at training time and dropped before prediction.",
		}, []string{"field"}),
		persistenceSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "persistence_skips_total",
			Help:      "Reconciles skipped because the target date was already persisted.",
		}, []string{"table"}),
	}
	registry.MustRegister(r.stepDurationSeconds, r.stepStatusCounter, r.rowsCounter, r.droppedLabels, r.persistenceSkips)
	return r
}

// Registry exposes the underlying registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, step, status string, duration time.Duration) {
	r.stepDurationSeconds.WithLabelValues(step, status).Observe(duration.Seconds())
	r.stepStatusCounter.WithLabelValues(step, status).Inc()
}

func (r *PrometheusRecorder) RecordRows(ctx context.Context, step, kind string, n int) {
	if n > 0 {
		r.rowsCounter.WithLabelValues(step, kind).Add(float64(n))
	}
}

func (r *PrometheusRecorder) RecordDroppedLabels(ctx context.Context, field string, n int) {
	if n > 0 {
		r.droppedLabels.WithLabelValues(field).Add(float64(n))
	}
}

func (r *PrometheusRecorder) RecordPersistenceSkip(ctx context.Context, table string) {
	r.persistenceSkips.WithLabelValues(table).Inc()
}

func (r *PrometheusRecorder) Flush() error {
	if r.textfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(r.textfilePath, r.registry); err != nil {
		return err
	}
	logger.Debugf("Metrics written to %s", r.textfilePath)
	return nil
}
