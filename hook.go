package taskloop

import "context"

// Hooks receives plan lifecycle events of a run. Returning an error aborts
// the run with that error.
type Hooks interface {
	OnPlanCreated(ctx context.Context, plan *Plan) error
	OnPlanUpdated(ctx context.Context, plan *Plan) error
	OnStepDone(ctx context.Context, plan *Plan, step *Step) error
}

type nopHooks struct{}

func (nopHooks) OnPlanCreated(context.Context, *Plan) error      { return nil }
func (nopHooks) OnPlanUpdated(context.Context, *Plan) error      { return nil }
func (nopHooks) OnStepDone(context.Context, *Plan, *Step) error { return nil }

// InputLoader prepares the input artifact of a run, e.g. a dataset file, and
// returns its path relative to the workspace.
type InputLoader interface {
	Load(ctx context.Context) (string, error)
}
