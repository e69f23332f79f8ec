package taskloop_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/taskloop"
)

func TestNextPending(t *testing.T) {
	plan := taskloop.NewPlan("goal", "a", "b", "c")

	idx, step := plan.NextPending()
	gt.Equal(t, idx, 0)
	gt.Equal(t, step.Description, "a")

	gt.NoError(t, plan.Complete(0))
	gt.NoError(t, plan.Complete(2))
	idx, step = plan.NextPending()
	gt.Equal(t, idx, 1)
	gt.Equal(t, step.Description, "b")

	gt.NoError(t, plan.Complete(1))
	idx, step = plan.NextPending()
	gt.Equal(t, idx, -1)
	gt.V(t, step).Nil()
	gt.True(t, plan.Done())
	gt.Equal(t, plan.CompletedCount(), 3)

	var nilPlan *taskloop.Plan
	idx, _ = nilPlan.NextPending()
	gt.Equal(t, idx, -1)
}

func TestComplete(t *testing.T) {
	plan := taskloop.NewPlan("goal", "a")
	gt.NoError(t, plan.Complete(0))
	gt.NoError(t, plan.Complete(0))
	gt.Equal(t, plan.Steps[0].Status, taskloop.StepCompleted)

	gt.Error(t, plan.Complete(1))
	gt.Error(t, plan.Complete(-1))
}

func TestClone(t *testing.T) {
	plan := taskloop.NewPlan("goal", "a", "b")
	clone := plan.Clone()
	gt.NoError(t, clone.Complete(0))
	gt.Equal(t, plan.Steps[0].Status, taskloop.StepPending)
}

func TestReconcile(t *testing.T) {
	type testCase struct {
		current *taskloop.Plan
		next    *taskloop.Plan
		want    *taskloop.Plan
		dropped int
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			before := tc.current.Clone()
			got, dropped := tc.current.Reconcile(tc.next)
			gt.Equal(t, got, tc.want)
			gt.A(t, dropped).Length(tc.dropped)
			// the receiver is not modified
			gt.Equal(t, tc.current, before)
		}
	}

	completed := func(desc string) taskloop.Step {
		return taskloop.Step{Description: desc, Status: taskloop.StepCompleted}
	}
	pending := func(desc string) taskloop.Step {
		return taskloop.Step{Description: desc, Status: taskloop.StepPending}
	}

	t.Run("pending steps are replaced", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b")}},
		next:    &taskloop.Plan{Goal: "g2", Steps: []taskloop.Step{pending("a"), pending("x"), pending("y")}},
		want:    &taskloop.Plan{Goal: "g2", Steps: []taskloop.Step{completed("a"), pending("x"), pending("y")}},
		dropped: 1,
	}))
	t.Run("remaining steps only", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b"), pending("c")}},
		next:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{pending("b"), pending("c")}},
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b"), pending("c")}},
	}))
	t.Run("completed steps survive a shorter update", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), completed("b"), pending("c")}},
		next:    &taskloop.Plan{Steps: []taskloop.Step{pending("z")}},
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), completed("b"), pending("z")}},
	}))
	t.Run("repeated description is dropped", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("Load the data")}},
		next:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{pending("load  the data"), pending("plot")}},
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("Load the data"), pending("plot")}},
		dropped: 1,
	}))
	t.Run("reworded echo of a completed step", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b")}},
		next:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a, done"), pending("b")}},
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b")}},
		dropped: 1,
	}))
	t.Run("model cannot complete a step", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{pending("a")}},
		next:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), completed("b")}},
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{pending("a"), pending("b")}},
	}))
	t.Run("nil update", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b")}},
		next:    nil,
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b")}},
	}))
	t.Run("pending steps may be dropped", runTest(testCase{
		current: &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a"), pending("b"), pending("c")}},
		next:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{pending("a")}},
		want:    &taskloop.Plan{Goal: "g", Steps: []taskloop.Step{completed("a")}},
		dropped: 1,
	}))
}

func TestReconcileKeepsCompletedPrefix(t *testing.T) {
	// Any update keeps every completed step first, in order and unchanged.
	current := taskloop.NewPlan("g", "a", "b", "c", "d")
	gt.NoError(t, current.Complete(0))
	gt.NoError(t, current.Complete(1))

	updates := []*taskloop.Plan{
		taskloop.NewPlan("g"),
		taskloop.NewPlan("g", "x"),
		taskloop.NewPlan("g", "c", "d"),
		taskloop.NewPlan("g", "x", "y", "z", "w", "v"),
		{Goal: "g", Steps: []taskloop.Step{{Description: "x", Status: taskloop.StepCompleted}}},
	}

	for _, next := range updates {
		got, dropped := current.Reconcile(next)
		gt.Equal(t, got.Steps[:2], current.Steps[:2])
		gt.Equal(t, got.CompletedCount(), 2)
		// every proposed step is either adopted or reported
		gt.Equal(t, len(got.Steps)-2+len(dropped), len(next.Steps))
	}
}

func TestParsePlan(t *testing.T) {
	t.Run("fenced with reasoning", func(t *testing.T) {
		raw := "<think>plan it</think>\n```json\n" + `{
  "thought": "simple",
  "goal": "analyze",
  "steps": [
    {"title": "load", "description": "load the data", "status": "pending"},
    {"description": "plot the data"}
  ]
}` + "\n```"
		plan, err := taskloop.ParsePlan(raw)
		gt.NoError(t, err).Required()
		gt.Equal(t, plan.Goal, "analyze")
		gt.Equal(t, plan.Thought, "simple")
		gt.A(t, plan.Steps).Length(2)
		gt.Equal(t, plan.Steps[0].Title, "load")
		gt.Equal(t, plan.Steps[1].Status, taskloop.StepPending)
	})

	t.Run("schema violations", func(t *testing.T) {
		for _, raw := range []string{
			`{"steps": []}`,
			`{"goal": "g", "steps": [{"description": ""}]}`,
			`{"goal": "g", "steps": [{"description": "a", "status": "done"}]}`,
			`{"goal": "g", "steps": "a, b"}`,
			`[]`,
		} {
			_, err := taskloop.ParsePlan(raw)
			gt.True(t, errors.Is(err, taskloop.ErrParse))

			var perr *taskloop.ParseError
			gt.True(t, errors.As(err, &perr))
			gt.Equal(t, perr.Kind(), "ValidationError")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := taskloop.ParsePlan(`{"goal": "g", "steps": [`)
		var perr *taskloop.ParseError
		gt.True(t, errors.As(err, &perr))
		gt.Equal(t, perr.Kind(), "UnexpectedEOF")
	})
}

func TestPlanString(t *testing.T) {
	plan := taskloop.NewPlan("goal", "a")
	s := plan.String()
	gt.S(t, s).Contains(`"goal": "goal"`)
	gt.True(t, strings.Contains(s, `"status": "pending"`))

	// round trip through the parser
	parsed, err := taskloop.ParsePlan(s)
	gt.NoError(t, err).Required()
	gt.Equal(t, parsed, plan)
}

func TestPlanSchemaCompiles(t *testing.T) {
	schema, err := taskloop.PlanSchema()
	gt.NoError(t, err)
	gt.V(t, schema).NotNil()
}
