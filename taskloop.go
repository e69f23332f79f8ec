// Package taskloop runs a plan, execute and report loop that turns a single
// task description into tool actions performed by a language model, and
// finishes only once a report artifact exists in the workspace.
package taskloop

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop/trace"
	"github.com/m-mizutani/taskloop/workspace"
)

// DefaultMaxSteps bounds the execute and plan update cycles of a run.
const DefaultMaxSteps = 32

// Phase is a state of the orchestrator.
type Phase int

const (
	PhasePlan Phase = iota
	PhaseExecute
	PhaseUpdatePlan
	PhaseReport
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePlan:
		return "plan"
	case PhaseExecute:
		return "execute"
	case PhaseUpdatePlan:
		return "update_plan"
	case PhaseReport:
		return "report"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// RunState is the state of one run. It is owned by the orchestrator; tools
// never see it.
type RunState struct {
	// Task is the task description, including the location of the input
	// artifact when one was loaded.
	Task string
	Plan *Plan

	// Observations is what later phases see of earlier ones: the task and
	// one summary per executed step.
	Observations *History
	// Messages is the full log of the run.
	Messages *History

	InputPath string
	StartedAt time.Time
}

// Result is the terminal record of a run. ArtifactPath is absolute, or empty
// when the report phase could not produce the artifact.
type Result struct {
	ReportText   string
	ArtifactPath string
	Plan         *Plan
	Messages     *History
}

// Orchestrator drives runs. It holds no per-run state and can be reused for
// sequential runs.
type Orchestrator struct {
	client LLMClient
	tools  ToolSet
	ws     *workspace.Workspace

	logger         *slog.Logger
	tracer         trace.Handler
	hooks          Hooks
	loader         InputLoader
	artifactExt    string
	maxSteps       int
	updateAttempts int
	reportRounds   int
	stepLoopLimit  int
	now            func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger put into the context of a run. Without it, the
// logger already in the context is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTrace records every run with h.
func WithTrace(h trace.Handler) Option {
	return func(o *Orchestrator) {
		o.tracer = h
	}
}

// WithHooks sets callbacks for plan and step progress.
func WithHooks(hooks Hooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithInputLoader prepares an input artifact before planning. Its path is
// appended to the task.
func WithInputLoader(loader InputLoader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithArtifactExt sets the extension of the required report artifact.
func WithArtifactExt(ext string) Option {
	return func(o *Orchestrator) {
		o.artifactExt = ext
	}
}

// WithMaxSteps bounds the number of executed steps. When it is reached the
// run goes to the report phase even if steps are pending.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		o.maxSteps = n
	}
}

// WithUpdateAttempts sets how many replies a plan update may take.
func WithUpdateAttempts(n int) Option {
	return func(o *Orchestrator) {
		o.updateAttempts = n
	}
}

// WithReportRounds sets how many model round trips the report phase may take.
func WithReportRounds(n int) Option {
	return func(o *Orchestrator) {
		o.reportRounds = n
	}
}

// WithStepLoopLimit sets how many model round trips one step may take.
func WithStepLoopLimit(n int) Option {
	return func(o *Orchestrator) {
		o.stepLoopLimit = n
	}
}

// New creates an orchestrator over a model client, a tool set and the
// workspace the tools work in.
func New(client LLMClient, tools ToolSet, ws *workspace.Workspace, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:         client,
		tools:          tools,
		ws:             ws,
		hooks:          nopHooks{},
		artifactExt:    DefaultArtifactExt,
		maxSteps:       DefaultMaxSteps,
		updateAttempts: DefaultUpdateAttempts,
		reportRounds:   DefaultReportRounds,
		stepLoopLimit:  DefaultStepLoopLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes task to the end. Only input loading, plan creation, hook
// failures and context cancellation return an error; a report phase that
// could not produce the artifact returns a Result with an empty ArtifactPath.
func (o *Orchestrator) Run(ctx context.Context, task string) (result *Result, err error) {
	if task == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "task is empty")
	}

	if o.logger != nil {
		ctx = ctxlog.With(ctx, o.logger)
	}

	if o.tracer != nil {
		ctx = trace.WithHandler(ctx, o.tracer)
		ctx = o.tracer.StartRun(ctx)
		defer func() {
			o.tracer.EndRun(ctx, err)
			if ferr := o.tracer.Finish(ctx); ferr != nil {
				ctxlog.From(ctx).Warn("failed to finish trace", slog.Any("error", ferr))
			}
		}()
	}

	run := &RunState{
		Task:      task,
		Messages:  NewHistory(),
		StartedAt: o.now(),
	}

	if o.loader != nil {
		path, err := o.loader.Load(ctx)
		if err != nil {
			return nil, goerr.Wrap(errors.Join(ErrInputUnavailable, err), "failed to load input")
		}
		run.InputPath = path
		run.Task = buildTaskContext(task, path)
	}

	run.Observations = NewHistory(Message{Role: RoleUser, Text: "Task:\n" + run.Task})
	run.Messages.Append(run.Observations.Messages...)

	planner := NewPlanner(o.client, o.updateAttempts)
	executor := NewExecutor(o.client, o.tools, o.stepLoopLimit)
	reporter := NewReporter(o.client, o.tools, o.ws, o.artifactExt, o.reportRounds)

	logger := ctxlog.From(ctx)
	logger.Info("run started", slog.String("task", task), slog.String("workspace", o.ws.Root()))

	phase := PhasePlan
	executed := 0

	for phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "run interrupted", goerr.V("phase", phase.String()))
		}

		phaseCtx := ctx
		if o.tracer != nil {
			phaseCtx = o.tracer.StartPhase(ctx, phase.String())
		}

		next, res, err := o.step(phaseCtx, phase, run, planner, executor, reporter, &executed)

		if o.tracer != nil {
			o.tracer.EndPhase(phaseCtx, err)
		}
		if err != nil {
			return nil, err
		}
		if res != nil {
			result = res
		}

		logger.Debug("phase transition", slog.String("from", phase.String()), slog.String("to", next.String()))
		phase = next
	}

	result.Plan = run.Plan
	result.Messages = run.Messages
	logger.Info("run finished",
		slog.String("artifact", result.ArtifactPath),
		slog.Int("completed_steps", run.Plan.CompletedCount()),
		slog.Int("steps", len(run.Plan.Steps)),
	)
	return result, nil
}

// step runs one phase and returns the next one. Only the report phase
// returns a Result.
func (o *Orchestrator) step(ctx context.Context, phase Phase, run *RunState, planner *Planner, executor *Executor, reporter *Reporter, executed *int) (Phase, *Result, error) {
	switch phase {
	case PhasePlan:
		plan, err := planner.CreatePlan(ctx, run)
		if err != nil {
			return phase, nil, goerr.Wrap(errors.Join(ErrPlanCreation, err), "failed to create plan")
		}
		run.Plan = plan
		if err := o.hooks.OnPlanCreated(ctx, plan); err != nil {
			return phase, nil, goerr.Wrap(err, "plan created hook failed")
		}
		return PhaseExecute, nil, nil

	case PhaseExecute:
		if *executed >= o.maxSteps {
			ctxlog.From(ctx).Warn("step limit reached, moving to report",
				slog.Int("limit", o.maxSteps),
				slog.Int("pending", len(run.Plan.Steps)-run.Plan.CompletedCount()),
			)
			return PhaseReport, nil, nil
		}

		idx, _ := run.Plan.NextPending()
		next, err := executor.Step(ctx, run)
		if err != nil {
			return phase, nil, err
		}
		if idx >= 0 {
			*executed++
			if err := o.hooks.OnStepDone(ctx, run.Plan, &run.Plan.Steps[idx]); err != nil {
				return phase, nil, goerr.Wrap(err, "step done hook failed", goerr.V("step", idx))
			}
		}
		return next, nil, nil

	case PhaseUpdatePlan:
		updated, ok, err := planner.UpdatePlan(ctx, run)
		if err != nil {
			return phase, nil, err
		}
		if ok {
			run.Plan = updated
			if err := o.hooks.OnPlanUpdated(ctx, updated); err != nil {
				return phase, nil, goerr.Wrap(err, "plan updated hook failed")
			}
		}
		return PhaseExecute, nil, nil

	case PhaseReport:
		res, err := reporter.Report(ctx, run)
		if err != nil {
			return phase, nil, err
		}
		return PhaseDone, res, nil
	}

	return PhaseDone, nil, goerr.New("unknown phase", goerr.V("phase", int(phase)))
}
