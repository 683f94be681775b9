package step_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
)

type stubStep struct {
	result step.Result
	err    error
}

func (s stubStep) Name() string { return "stub" }

func (s stubStep) Execute(ctx context.Context, p step.Params) (step.Result, error) {
	return s.result, s.err
}

type statusRecorder struct {
	metrics.NoOpMetricRecorder
	statuses []string
}

func (r *statusRecorder) RecordStepEnd(ctx context.Context, step, status string, duration time.Duration) {
	r.statuses = append(r.statuses, step+":"+status)
}

func TestRunner_RecordsStatus(t *testing.T) {
	rec := &statusRecorder{}
	runner := step.NewRunner(metrics.NewNoOpTracer(), rec)
	ctx := context.Background()

	res, err := runner.Run(ctx, stubStep{result: step.Result{Rows: 3}}, step.Params{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, metrics.StatusCompleted, res.Status)
	assert.Equal(t, "stub", res.Step)

	_, err = runner.Run(ctx, stubStep{result: step.Result{Status: metrics.StatusSkipped}}, step.Params{})
	require.NoError(t, err)

	boom := errors.New("boom")
	res, err = runner.Run(ctx, stubStep{err: boom}, step.Params{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, metrics.StatusFailed, res.Status)

	assert.Equal(t, []string{"stub:completed", "stub:skipped", "stub:failed"}, rec.statuses)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := step.NewRunner(metrics.NewNoOpTracer(), metrics.NewNoOpMetricRecorder())
	_, err := runner.Run(ctx, stubStep{}, step.Params{})
	assert.ErrorIs(t, err, context.Canceled)
}
