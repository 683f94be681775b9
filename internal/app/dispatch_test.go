package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/internal/app"
	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

// recordingStep remembers the params of its last call.
type recordingStep struct {
	name   string
	result step.Result
	err    error
	got    *step.Params
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Execute(ctx context.Context, p step.Params) (step.Result, error) {
	s.got = &p
	return s.result, s.err
}

func newDispatcher(t *testing.T, steps ...step.Step) *app.Dispatcher {
	t.Helper()
	reg, err := step.NewRegistry(step.RegistryParams{Steps: steps})
	require.NoError(t, err)
	return app.NewDispatcher(reg, step.NewRunner(metrics.NewNoOpTracer(), metrics.NewNoOpMetricRecorder()))
}

func TestDispatch_RunCarriesPreparedDate(t *testing.T) {
	target := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	prepare := &recordingStep{name: "prepare", result: step.Result{Date: target, Keys: []string{"features/prepared_data/2024-05-02.csv"}}}
	predict := &recordingStep{name: "predict"}
	reconcile := &recordingStep{name: "reconcile", result: step.Result{Status: metrics.StatusSkipped}}

	d := newDispatcher(t, prepare, predict, reconcile)
	results, err := d.Dispatch(context.Background(), app.Command{Name: app.CommandRun, Params: step.Params{RunID: "r1", Family: "xgb"}})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"prepare", "predict", "reconcile"}, []string{results[0].Step, results[1].Step, results[2].Step})
	assert.Equal(t, metrics.StatusSkipped, results[2].Status)

	assert.False(t, prepare.got.HasDate())
	assert.Equal(t, "features/prepared_data/2024-05-02.csv", predict.got.Key)
	assert.Equal(t, "xgb", predict.got.Family)
	assert.Equal(t, target, reconcile.got.Date)
	assert.Equal(t, "r1", reconcile.got.RunID)
}

func TestDispatch_RunStopsAtFirstFailure(t *testing.T) {
	missing := exception.NewDataError("prepare", "no weather", nil)
	prepare := &recordingStep{name: "prepare", err: missing}
	predict := &recordingStep{name: "predict"}
	reconcile := &recordingStep{name: "reconcile"}

	results, err := newDispatcher(t, prepare, predict, reconcile).Dispatch(context.Background(), app.Command{Name: app.CommandRun})
	assert.ErrorIs(t, err, exception.ErrData)
	assert.Len(t, results, 1)
	assert.Nil(t, predict.got)
	assert.Nil(t, reconcile.got)
	assert.Equal(t, app.ExitTempFail, app.ExitCode(err))
}

func TestDispatch_SingleAndUnknown(t *testing.T) {
	migrate := &recordingStep{name: "migrate", result: step.Result{Rows: 2}}
	d := newDispatcher(t, migrate)

	results, err := d.Dispatch(context.Background(), app.Command{Name: "migrate", Params: step.Params{Args: []string{"x"}}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, metrics.StatusCompleted, results[0].Status)
	assert.Equal(t, []string{"x"}, migrate.got.Args)

	_, err = d.Dispatch(context.Background(), app.Command{Name: "train"})
	assert.ErrorContains(t, err, `unknown command "train"`)
	assert.Equal(t, app.ExitFailure, app.ExitCode(err))
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := step.NewRegistry(step.RegistryParams{Steps: []step.Step{
		&recordingStep{name: "ingest"},
		&recordingStep{name: "ingest"},
	}})
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, app.ExitOK, app.ExitCode(nil))
	assert.Equal(t, app.ExitTempFail, app.ExitCode(fmt.Errorf("wrapped: %w", exception.NewDataError("predict", "no features", nil))))
	assert.Equal(t, app.ExitFailure, app.ExitCode(exception.NewValidationError("reconcile", "bad", nil)))
	assert.Equal(t, app.ExitFailure, app.ExitCode(errors.New("boom")))
}
