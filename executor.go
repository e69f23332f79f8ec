package taskloop

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop/trace"
)

// DefaultStepLoopLimit bounds the model round trips spent on one step.
const DefaultStepLoopLimit = 16

// Executor advances a run by one pending step per call.
type Executor struct {
	client    LLMClient
	tools     ToolSet
	loopLimit int
}

// NewExecutor creates an executor. A non-positive loopLimit falls back to
// DefaultStepLoopLimit.
func NewExecutor(client LLMClient, tools ToolSet, loopLimit int) *Executor {
	if loopLimit <= 0 {
		loopLimit = DefaultStepLoopLimit
	}
	return &Executor{client: client, tools: tools, loopLimit: loopLimit}
}

// Step runs the first pending step of run.Plan. It returns PhaseReport without
// calling the model when no step is pending, and PhaseUpdatePlan otherwise.
//
// The step is marked completed once the first batch of tool calls has been
// dispatched, or when the interaction ends without any tool call. Tool
// failures and model errors do not fail the step; they end up in the summary
// the model or the executor writes.
func (x *Executor) Step(ctx context.Context, run *RunState) (Phase, error) {
	idx, step := run.Plan.NextPending()
	if idx < 0 {
		return PhaseReport, nil
	}

	logger := ctxlog.From(ctx).With(slog.Int("step", idx))
	logger.Info("execute step", slog.String("description", step.Description))

	var (
		summary   string
		toolCalls int
	)

	specs := x.tools.Specs()
	session, err := x.client.NewSession(ctx,
		WithSessionHistory(run.Observations),
		WithSessionTools(specs...),
	)
	if err != nil {
		logger.Warn("failed to create executor session, closing step", slog.Any("error", err))
		summary = fmt.Sprintf("The step was stopped because the model session could not be created: %v", err)
	} else {
		seeded := run.Observations.Len()
		summary, toolCalls, err = x.interact(ctx, run, idx, step, session, specNames(specs))
		if err != nil {
			return PhaseExecute, err
		}
		run.Messages.Append(sessionTranscript(session, seeded)...)
	}

	if err := run.Plan.Complete(idx); err != nil {
		return PhaseExecute, err
	}

	if summary == "" {
		summary = "The step finished without a summary."
	}

	note := Message{
		Role: RoleAssistant,
		Text: fmt.Sprintf("Step %d (%s) result:\n%s", idx+1, step.Description, summary),
	}
	run.Messages.Append(note)
	run.Observations.Append(note)

	if h := trace.HandlerFrom(ctx); h != nil {
		h.AddEvent(ctx, "step_completed", map[string]any{
			"index":      idx,
			"tool_calls": toolCalls,
		})
	}
	logger.Info("step completed", slog.Int("tool_calls", toolCalls))

	return PhaseUpdatePlan, nil
}

// interact runs the tool loop of one step on session and returns the last
// summary and the number of dispatched tool calls.
func (x *Executor) interact(ctx context.Context, run *RunState, idx int, step *Step, session Session, names []string) (string, int, error) {
	logger := ctxlog.From(ctx).With(slog.Int("step", idx))

	var (
		summary   string
		completed bool
		toolCalls int
	)
	inputs := []Input{
		SystemText(executeSystemPrompt),
		Text(buildExecutePrompt(run.Task, step)),
	}

	for round := 0; ; round++ {
		if round >= x.loopLimit {
			logger.Warn("step loop limit reached", slog.Int("limit", x.loopLimit))
			break
		}
		if err := ctx.Err(); err != nil {
			return "", toolCalls, goerr.Wrap(err, "step interrupted", goerr.V("step", idx))
		}

		resp, err := generate(ctx, session, names, inputs...)
		if err != nil {
			logger.Warn("model request failed, closing step", slog.Any("error", err))
			summary = fmt.Sprintf("The step was stopped because the model request failed: %v", err)
			break
		}

		if text := StripReasoning(resp.Text()); text != "" {
			summary = text
		}
		if !resp.HasFunctionCalls() {
			break
		}

		inputs = runToolCalls(ctx, x.tools, resp.FunctionCalls)
		toolCalls += len(resp.FunctionCalls)

		if !completed {
			if err := run.Plan.Complete(idx); err != nil {
				return "", toolCalls, err
			}
			completed = true
		}
	}

	return summary, toolCalls, nil
}

// sessionTranscript returns the messages a session added on top of the
// seeded history.
func sessionTranscript(session Session, seeded int) []Message {
	h := session.History()
	if h.Len() <= seeded {
		return nil
	}
	return h.Messages[seeded:]
}
