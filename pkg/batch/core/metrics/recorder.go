// Package metrics declares the observability contracts of the pipeline steps.
// Implementations live in infrastructure/metrics; the NoOp variants here are
// used when metrics or tracing are disabled and in tests.
package metrics

import (
	"context"
	"time"
)

// Step outcome labels.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// MetricRecorder records step-level pipeline metrics.
type MetricRecorder interface {
	// RecordStepEnd records one finished step with its status and wall time.
	RecordStepEnd(ctx context.Context, step, status string, duration time.Duration)

	// RecordRows adds n rows of the given kind ("read", "features", "predicted", "written") for step.
	RecordRows(ctx context.Context, step, kind string, n int)

	// RecordDroppedLabels adds n categorical labels dropped by the encoder for field.
	RecordDroppedLabels(ctx context.Context, field string, n int)

	// RecordPersistenceSkip counts a reconcile skipped because the date was already persisted.
	RecordPersistenceSkip(ctx context.Context, table string)

	// Flush exports the collected metrics, if the implementation exports anything.
	Flush() error
}

// Tracer starts spans around pipeline steps.
type Tracer interface {
	// StartStepSpan starts a span named after step. The returned func ends it.
	StartStepSpan(ctx context.Context, step string, attributes map[string]string) (context.Context, func())

	// RecordError marks the current span as failed.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent adds an event to the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})

	// Shutdown flushes pending spans.
	Shutdown(ctx context.Context) error
}
