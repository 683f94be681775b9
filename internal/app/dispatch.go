// Package app assembles the Fx application and dispatches one CLI command.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitTempFail marks a DataError: the input for the date is not there yet, retry later.
	ExitTempFail = 75
)

// CommandRun chains prepare, predict and reconcile.
const CommandRun = "run"

// Command is one parsed invocation.
type Command struct {
	Name   string
	Params step.Params
}

// Dispatcher runs commands through the step registry.
type Dispatcher struct {
	registry *step.Registry
	runner   *step.Runner
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(registry *step.Registry, runner *step.Runner) *Dispatcher {
	return &Dispatcher{registry: registry, runner: runner}
}

// Dispatch executes cmd and returns the results of every step it ran.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) ([]step.Result, error) {
	if cmd.Name == CommandRun {
		return d.runAll(ctx, cmd.Params)
	}
	s, ok := d.registry.Lookup(cmd.Name)
	if !ok {
		return nil, exception.NewBatchError("app", fmt.Sprintf("unknown command %q (commands: %v, %s)", cmd.Name, d.registry.Names(), CommandRun), nil, false, false)
	}
	res, err := d.runner.Run(ctx, s, cmd.Params)
	return []step.Result{res}, err
}

// runAll feeds the prepared date and feature key forward so that every step works on the same date.
func (d *Dispatcher) runAll(ctx context.Context, p step.Params) ([]step.Result, error) {
	var results []step.Result
	for _, name := range []string{"prepare", "predict", "reconcile"} {
		s, ok := d.registry.Lookup(name)
		if !ok {
			return results, exception.NewBatchError("app", fmt.Sprintf("step %q is not registered", name), nil, false, false)
		}
		res, err := d.runner.Run(ctx, s, p)
		results = append(results, res)
		if err != nil {
			return results, err
		}
		if name == "prepare" {
			p.Date = res.Date
			if len(res.Keys) > 0 {
				p.Key = res.Keys[0]
			}
		}
	}
	return results, nil
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, exception.ErrData):
		return ExitTempFail
	default:
		return ExitFailure
	}
}
