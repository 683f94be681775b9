// Package step holds one orchestration step per CLI command. Steps wire the storage
// and database adapters to the pipeline packages and never hold state between runs.
package step

import (
	"context"
	"time"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// Params are the options of one invocation.
type Params struct {
	RunID string
	// Date forces the target date. Zero means resolve it from the data.
	Date time.Time
	// Key forces the feature object read by predict.
	Key string
	// Family restricts predict to one model family.
	Family string
	// Args are the positional arguments after the command.
	Args []string
}

// HasDate reports whether a target date was forced.
func (p Params) HasDate() bool { return !p.Date.IsZero() }

// Result summarizes a finished step.
type Result struct {
	Step   string
	Status string
	Date   time.Time
	// Rows is the number of rows the step produced.
	Rows int
	// Keys are the storage objects the step wrote or consumed.
	Keys []string
}

// DateString formats Date, or returns "" when it is unset.
func (r Result) DateString() string {
	if r.Date.IsZero() {
		return ""
	}
	return r.Date.Format(model.DateLayout)
}

// Step is one pipeline command.
type Step interface {
	Name() string
	Execute(ctx context.Context, p Params) (Result, error)
}

// Runner executes steps inside a span and records their outcome.
type Runner struct {
	tracer   metrics.Tracer
	recorder metrics.MetricRecorder
	now      func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(tracer metrics.Tracer, recorder metrics.MetricRecorder) *Runner {
	return &Runner{tracer: tracer, recorder: recorder, now: time.Now}
}

// Run executes s. The step's error is returned unchanged.
func (r *Runner) Run(ctx context.Context, s Step, p Params) (Result, error) {
	name := s.Name()
	log := logger.ForStep(p.RunID, name)
	attrs := map[string]string{"run.id": p.RunID}
	if p.HasDate() {
		attrs["target.date"] = p.Date.Format(model.DateLayout)
	}
	ctx, end := r.tracer.StartStepSpan(ctx, name, attrs)
	defer end()

	if err := ctx.Err(); err != nil {
		return Result{Step: name, Status: metrics.StatusFailed}, err
	}

	start := r.now()
	log.Infof("Starting.")
	res, err := s.Execute(ctx, p)
	res.Step = name
	elapsed := r.now().Sub(start)

	if err != nil {
		res.Status = metrics.StatusFailed
		r.recorder.RecordStepEnd(ctx, name, res.Status, elapsed)
		r.tracer.RecordError(ctx, "step."+name, err)
		if kind := exception.KindOf(err); kind != "" {
			log.Errorf("Failed with %s after %v: %v", kind, elapsed, err)
		} else {
			log.Errorf("Failed after %v: %v", elapsed, err)
		}
		return res, err
	}

	if res.Status == "" {
		res.Status = metrics.StatusCompleted
	}
	r.recorder.RecordStepEnd(ctx, name, res.Status, elapsed)
	r.tracer.RecordEvent(ctx, "step.finished", map[string]interface{}{
		"status":      res.Status,
		"rows":        res.Rows,
		"target.date": res.DateString(),
	})
	log.Infof("Finished with status %s in %v (date: %s, rows: %d).", res.Status, elapsed, res.DateString(), res.Rows)
	return res, nil
}
