package step

import (
	"fmt"
	"sort"

	"go.uber.org/fx"

	"github.com/tigerroll/ridership/internal/pipeline/predict"
)

// Group is the Fx group tag of all steps.
const Group = `group:"steps"`

// Registry looks steps up by command name.
type Registry struct {
	steps map[string]Step
}

// RegistryParams defines the dependencies of NewRegistry.
type RegistryParams struct {
	fx.In
	Steps []Step `group:"steps"`
}

// NewRegistry indexes every provided step by name.
func NewRegistry(p RegistryParams) (*Registry, error) {
	r := &Registry{steps: make(map[string]Step, len(p.Steps))}
	for _, s := range p.Steps {
		if _, dup := r.steps[s.Name()]; dup {
			return nil, fmt.Errorf("step %q registered twice", s.Name())
		}
		r.steps[s.Name()] = s
	}
	return r, nil
}

// Lookup returns the step named name.
func (r *Registry) Lookup(name string) (Step, bool) {
	s, ok := r.steps[name]
	return s, ok
}

// Names returns the registered step names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.steps))
	for n := range r.steps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func asStep(constructor interface{}) fx.Option {
	return fx.Provide(fx.Annotate(
		constructor,
		fx.As(new(Step)),
		fx.ResultTags(Group),
	))
}

// Module provides every step, the registry and the runner.
var Module = fx.Options(
	fx.Provide(func() RegressorLoader { return predict.LoadRegressor }),
	asStep(NewMigrateStep),
	asStep(NewIngestStep),
	asStep(NewPrepareStep),
	asStep(NewPredictStep),
	asStep(NewReconcileStep),
	fx.Provide(NewRegistry),
	fx.Provide(NewRunner),
)
