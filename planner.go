package taskloop

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop/trace"
)

// DefaultUpdateAttempts is the number of model calls one plan update may use.
const DefaultUpdateAttempts = 5

// Planner creates the initial plan of a run and revises it between steps.
type Planner struct {
	client   LLMClient
	attempts int
}

// NewPlanner creates a planner. A non-positive attempts falls back to
// DefaultUpdateAttempts.
func NewPlanner(client LLMClient, attempts int) *Planner {
	if attempts <= 0 {
		attempts = DefaultUpdateAttempts
	}
	return &Planner{client: client, attempts: attempts}
}

// CreatePlan asks the model for the initial plan of run.Task. It is not
// retried: a transport or parse failure is returned to the caller.
func (p *Planner) CreatePlan(ctx context.Context, run *RunState) (*Plan, error) {
	session, err := p.client.NewSession(ctx, WithSessionSystemPrompt(planSystemPrompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create planner session")
	}

	resp, err := generate(ctx, session, nil, Text(buildCreatePrompt(run.Task)))
	if err != nil {
		return nil, err
	}

	plan, err := ParsePlan(resp.Text())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse initial plan")
	}
	if len(plan.Steps) == 0 {
		return nil, goerr.New("initial plan has no steps", goerr.V("goal", plan.Goal))
	}

	// a fresh plan has nothing done yet, whatever the model claims
	for i := range plan.Steps {
		plan.Steps[i].Status = StepPending
	}

	run.Messages.Append(Message{Role: RoleAssistant, Text: plan.String()})

	ctxlog.From(ctx).Info("plan created",
		slog.String("goal", plan.Goal),
		slog.Int("steps", len(plan.Steps)),
	)
	return plan, nil
}

// UpdatePlan asks the model to revise run.Plan in light of the observations
// so far. A malformed reply is answered with a correction and retried. When
// every attempt fails it returns false and the current plan stays active.
// The returned plan is already reconciled with run.Plan.
func (p *Planner) UpdatePlan(ctx context.Context, run *RunState) (*Plan, bool, error) {
	logger := ctxlog.From(ctx)
	current := run.Plan

	var session Session
	inputs := []Input{Text(buildUpdatePrompt(current))}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, goerr.Wrap(err, "plan update interrupted")
		}

		if session == nil {
			s, err := p.client.NewSession(ctx,
				WithSessionSystemPrompt(planSystemPrompt),
				WithSessionHistory(run.Observations),
			)
			if err != nil {
				logger.Warn("failed to create planner session",
					slog.Int("attempt", attempt),
					slog.Any("error", err),
				)
				continue
			}
			session = s
		}

		resp, err := generate(ctx, session, nil, inputs...)
		if err != nil {
			// the session did not take the inputs, send them again
			logger.Warn("plan update request failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			continue
		}

		next, err := ParsePlan(resp.Text())
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				return nil, false, err
			}
			logger.Warn("malformed plan update",
				slog.Int("attempt", attempt),
				slog.String("kind", perr.Kind()),
				slog.Any("error", perr.Cause),
			)
			if h := trace.HandlerFrom(ctx); h != nil {
				h.AddEvent(ctx, "plan_correction", map[string]any{
					"attempt": attempt,
					"error":   perr.Error(),
				})
			}
			inputs = []Input{Text(buildCorrectionPrompt(perr))}
			continue
		}

		updated, dropped := current.Reconcile(next)
		for _, step := range dropped {
			logger.Warn("proposed step dropped, it repeats a completed step",
				slog.String("description", step.Description),
				slog.String("status", string(step.Status)),
			)
		}
		run.Messages.Append(Message{Role: RoleAssistant, Text: updated.String()})
		logger.Info("plan updated",
			slog.Int("attempt", attempt),
			slog.Int("steps", len(updated.Steps)),
			slog.Int("completed", updated.CompletedCount()),
		)
		return updated, true, nil
	}

	logger.Warn("plan update gave up, keeping current plan", slog.Int("attempts", p.attempts))
	return nil, false, nil
}
