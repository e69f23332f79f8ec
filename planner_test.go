package taskloop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/internal"
)

func TestCreatePlan(t *testing.T) {
	ctx := internal.TestContext()

	t.Run("steps start pending", func(t *testing.T) {
		s := newScript(t, textReply("<think>easy</think>\n```json\n"+`{
  "goal": "g",
  "steps": [
    {"description": "a", "status": "completed"},
    {"description": "b"}
  ]
}`+"\n```"))
		run := newRun("do it", nil)

		plan, err := taskloop.NewPlanner(s.client(), 0).CreatePlan(ctx, run)
		gt.NoError(t, err).Required()
		gt.A(t, plan.Steps).Length(2)
		for _, step := range plan.Steps {
			gt.Equal(t, step.Status, taskloop.StepPending)
		}

		gt.Equal(t, s.calls(), 1)
		gt.S(t, s.configs[0].SystemPrompt()).Contains("planning agent")
		gt.S(t, inputText(s.inputs[0][0])).Contains("do it")

		last, ok := run.Messages.Last()
		gt.True(t, ok)
		gt.Equal(t, last.Role, taskloop.RoleAssistant)
		gt.Equal(t, last.Text, plan.String())
	})

	t.Run("malformed reply is not retried", func(t *testing.T) {
		s := newScript(t, textReply("I will first load the data."))
		_, err := taskloop.NewPlanner(s.client(), 0).CreatePlan(ctx, newRun("do it", nil))
		gt.True(t, errors.Is(err, taskloop.ErrParse))
		gt.Equal(t, s.calls(), 1)
	})

	t.Run("transport error", func(t *testing.T) {
		s := newScript(t, failReply(errors.New("connection reset")))
		_, err := taskloop.NewPlanner(s.client(), 0).CreatePlan(ctx, newRun("do it", nil))
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("connection reset")
	})

	t.Run("empty plan", func(t *testing.T) {
		s := newScript(t, textReply(`{"goal": "g", "steps": []}`))
		_, err := taskloop.NewPlanner(s.client(), 0).CreatePlan(ctx, newRun("do it", nil))
		gt.Error(t, err)
	})
}

func TestUpdatePlan(t *testing.T) {
	ctx := internal.TestContext()

	current := func() *taskloop.Plan {
		p := taskloop.NewPlan("summarize sales", "load the data", "old step")
		_ = p.Complete(0)
		return p
	}

	t.Run("succeeds on the fifth attempt", func(t *testing.T) {
		s := newScript(t,
			textReply("not json"),
			textReply(`{"goal": "g", "steps": [`),
			textReply(`{"goal": "g"}`),
			textReply(`{"goal": "g", "steps": [{"description": "a", "status": "finished"}]}`),
			textReply(validPlanJSON),
		)
		run := newRun("task", current())

		plan, ok, err := taskloop.NewPlanner(s.client(), 5).UpdatePlan(ctx, run)
		gt.NoError(t, err).Required()
		gt.True(t, ok)
		gt.Equal(t, s.calls(), 5)

		gt.A(t, plan.Steps).Length(2)
		gt.Equal(t, plan.Steps[0], run.Plan.Steps[0])
		gt.Equal(t, plan.Steps[1].Description, "plot the data")
		gt.Equal(t, plan.Steps[1].Status, taskloop.StepPending)

		// every retry carries the error and the failing reply
		gt.S(t, inputText(s.inputs[1][0])).Contains("SyntaxError")
		gt.S(t, inputText(s.inputs[1][0])).Contains("not json")
		gt.S(t, inputText(s.inputs[2][0])).Contains("UnexpectedEOF")
		gt.S(t, inputText(s.inputs[3][0])).Contains("ValidationError")
		gt.S(t, inputText(s.inputs[4][0])).Contains("ValidationError")

		last, _ := run.Messages.Last()
		gt.Equal(t, last.Text, plan.String())
	})

	t.Run("gives up after five malformed replies", func(t *testing.T) {
		s := newScript(t,
			textReply("a"), textReply("b"), textReply("c"), textReply("d"), textReply("e"),
		)
		run := newRun("task", current())
		before := run.Plan.Clone()

		plan, ok, err := taskloop.NewPlanner(s.client(), 5).UpdatePlan(ctx, run)
		gt.NoError(t, err)
		gt.False(t, ok)
		gt.V(t, plan).Nil()
		gt.Equal(t, s.calls(), 5)
		gt.Equal(t, run.Plan, before)
		gt.Equal(t, run.Messages.Len(), 0)
	})

	t.Run("transport errors count as attempts", func(t *testing.T) {
		s := newScript(t,
			failReply(errors.New("503")),
			failReply(errors.New("503")),
			textReply(validPlanJSON),
		)
		run := newRun("task", current())

		_, ok, err := taskloop.NewPlanner(s.client(), 5).UpdatePlan(ctx, run)
		gt.NoError(t, err)
		gt.True(t, ok)
		gt.Equal(t, s.calls(), 3)

		// the same request is sent again
		gt.Equal(t, inputText(s.inputs[1][0]), inputText(s.inputs[0][0]))
		gt.Equal(t, inputText(s.inputs[2][0]), inputText(s.inputs[0][0]))
		gt.S(t, inputText(s.inputs[0][0])).Contains("summarize sales")
	})

	t.Run("session sees the observations", func(t *testing.T) {
		s := newScript(t, textReply(validPlanJSON))
		run := newRun("task", current())
		run.Observations.Append(taskloop.Message{Role: taskloop.RoleAssistant, Text: "loaded 10 rows"})

		_, _, err := taskloop.NewPlanner(s.client(), 5).UpdatePlan(ctx, run)
		gt.NoError(t, err)
		gt.Equal(t, s.configs[0].History().Len(), 2)
	})

	t.Run("session creation failures count as attempts", func(t *testing.T) {
		s := newScript(t, textReply(validPlanJSON))
		run := newRun("task", current())

		plan, ok, err := taskloop.NewPlanner(failSessions(s.client(), 2), 5).UpdatePlan(ctx, run)
		gt.NoError(t, err).Required()
		gt.True(t, ok)
		gt.Equal(t, s.calls(), 1)
		gt.A(t, plan.Steps).Length(2)

		s = newScript(t)
		_, ok, err = taskloop.NewPlanner(failSessions(s.client(), 5), 5).UpdatePlan(ctx, newRun("task", current()))
		gt.NoError(t, err)
		gt.False(t, ok)
	})

	t.Run("remaining steps only", func(t *testing.T) {
		s := newScript(t, textReply(`{"goal": "g", "steps": [{"description": "old step"}, {"description": "write report"}]}`))
		run := newRun("task", current())

		plan, ok, err := taskloop.NewPlanner(s.client(), 5).UpdatePlan(ctx, run)
		gt.NoError(t, err).Required()
		gt.True(t, ok)
		gt.A(t, plan.Steps).Length(3)
		gt.Equal(t, plan.Steps[0], run.Plan.Steps[0])
		gt.Equal(t, plan.Steps[1].Description, "old step")
		gt.Equal(t, plan.Steps[2].Description, "write report")
	})

	t.Run("canceled context", func(t *testing.T) {
		s := newScript(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, ok, err := taskloop.NewPlanner(s.client(), 5).UpdatePlan(cctx, newRun("task", current()))
		gt.True(t, errors.Is(err, context.Canceled))
		gt.False(t, ok)
		gt.Equal(t, s.calls(), 0)
	})
}
