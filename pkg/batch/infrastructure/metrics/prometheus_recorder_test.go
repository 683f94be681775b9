package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/ridership/pkg/batch/core/config"
	coremetrics "github.com/tigerroll/ridership/pkg/batch/core/metrics"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	r := NewPrometheusRecorder(config.MetricsConfig{Enabled: true, Namespace: "ridership"})
	ctx := context.Background()

	r.RecordStepEnd(ctx, "predict", coremetrics.StatusCompleted, 2*time.Second)
	r.RecordStepEnd(ctx, "reconcile", coremetrics.StatusSkipped, time.Millisecond)
	r.RecordRows(ctx, "predict", "predicted", 12)
	r.RecordRows(ctx, "predict", "predicted", 3)
	r.RecordRows(ctx, "predict", "features", 0)
	r.RecordDroppedLabels(ctx, "station_name", 2)
	r.RecordPersistenceSkip(ctx, "pred_data")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepStatusCounter.WithLabelValues("predict", coremetrics.StatusCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepStatusCounter.WithLabelValues("reconcile", coremetrics.StatusSkipped)))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.rowsCounter.WithLabelValues("predict", "predicted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.droppedLabels.WithLabelValues("station_name")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.persistenceSkips.WithLabelValues("pred_data")))
	// zero-row observations create no series
	assert.Equal(t, 1, testutil.CollectAndCount(r.rowsCounter))
}

func TestPrometheusRecorder_FlushTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ridership.prom")
	r := NewPrometheusRecorder(config.MetricsConfig{Enabled: true, Namespace: "ridership", TextfilePath: path})
	r.RecordPersistenceSkip(context.Background(), "pred_data")

	require.NoError(t, r.Flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ridership_persistence_skips_total{table="pred_data"} 1`)
}

func TestPrometheusRecorder_FlushWithoutPath(t *testing.T) {
	r := NewPrometheusRecorder(config.MetricsConfig{Namespace: "ridership"})
	assert.NoError(t, r.Flush())
}
