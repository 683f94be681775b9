package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/ridership/pkg/batch/core/config"
	metrics "github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// NewMetricRecorder returns the Prometheus recorder when metrics are enabled, NoOp otherwise.
// The registry is flushed when the application stops.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config) metrics.MetricRecorder {
	if !cfg.Surfin.Metrics.Enabled {
		return metrics.NewNoOpMetricRecorder()
	}
	r := NewPrometheusRecorder(cfg.Surfin.Metrics)
	lc.Append(fx.StopHook(func() {
		if err := r.Flush(); err != nil {
			logger.Warnf("Failed to flush metrics: %v", err)
		}
	}))
	return r
}

// NewTracer returns the OpenTelemetry tracer when tracing is enabled with an endpoint, NoOp otherwise.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Surfin.Tracing
	if !tc.Enabled || tc.Endpoint == "" {
		return metrics.NewNoOpTracer(), nil
	}
	t, err := NewOpenTelemetryTracer(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		return t.Shutdown(ctx)
	}))
	logger.Infof("Tracing enabled (%s exporter, endpoint %s).", tc.Exporter, tc.Endpoint)
	return t, nil
}

// Module provides the MetricRecorder and Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
