package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is a MetricRecorder that does nothing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new NoOpMetricRecorder.
func NewNoOpMetricRecorder() *NoOpMetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordStepEnd(ctx context.Context, step, status string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordRows(ctx context.Context, step, kind string, n int)     {}
func (r *NoOpMetricRecorder) RecordDroppedLabels(ctx context.Context, field string, n int) {}
func (r *NoOpMetricRecorder) RecordPersistenceSkip(ctx context.Context, table string)      {}
func (r *NoOpMetricRecorder) Flush() error                                                 { return nil }

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is a Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new NoOpTracer.
func NewNoOpTracer() *NoOpTracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartStepSpan(ctx context.Context, step string, attributes map[string]string) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}
func (t *NoOpTracer) Shutdown(ctx context.Context) error { return nil }

var _ Tracer = (*NoOpTracer)(nil)
