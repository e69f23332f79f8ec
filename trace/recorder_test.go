package trace_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/taskloop/trace"
)

func newTestRecorder(opts ...trace.Option) *trace.Recorder {
	rec := trace.New(opts...)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	rec.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	})
	return rec
}

func TestRecorderContextPropagation(t *testing.T) {
	rec := trace.New()
	ctx := context.Background()

	gt.V(t, trace.HandlerFrom(ctx)).Nil()

	ctx = trace.WithHandler(ctx, rec)
	gt.V(t, trace.HandlerFrom(ctx)).NotNil()
	gt.Equal[trace.Handler](t, trace.HandlerFrom(ctx), rec)
}

func TestRecorderRunSpan(t *testing.T) {
	rec := newTestRecorder(
		trace.WithTraceID("run-1"),
		trace.WithMetadata(trace.TraceMetadata{Model: "test-model", Task: "analyze"}),
	)

	runCtx := rec.StartRun(context.Background())
	span := trace.CurrentSpanFrom(runCtx)
	gt.V(t, span).NotNil()
	gt.Equal(t, span.Kind, trace.SpanKindRun)

	tr := rec.Trace()
	gt.Equal(t, tr.TraceID, "run-1")
	gt.Equal(t, tr.Metadata.Task, "analyze")
	gt.Equal(t, tr.RootSpan, span)

	rec.EndRun(runCtx, nil)
	gt.Equal(t, span.Status, trace.SpanStatusOK)
	gt.True(t, span.Duration > 0)
	gt.Equal(t, tr.EndedAt, span.EndedAt)
}

func TestRecorderGeneratesTraceID(t *testing.T) {
	rec := trace.New()
	rec.StartRun(context.Background())
	gt.S(t, rec.Trace().TraceID).NotEqual("")
}

func TestRecorderNestedSpans(t *testing.T) {
	rec := newTestRecorder()
	runCtx := rec.StartRun(context.Background())

	phaseCtx := rec.StartPhase(runCtx, "execute")
	llmCtx := rec.StartLLMCall(phaseCtx)
	rec.EndLLMCall(llmCtx, &trace.LLMCallData{
		InputTokens:  100,
		OutputTokens: 20,
		Request: &trace.LLMRequest{
			Messages: []trace.Message{{Role: "user", Content: "step 1"}},
			Tools:    []string{"shell_exec"},
		},
		Response: &trace.LLMResponse{
			FunctionCalls: []*trace.FunctionCall{{ID: "c1", Name: "shell_exec"}},
		},
	}, nil)

	toolCtx := rec.StartToolExec(phaseCtx, "shell_exec", map[string]any{"command": "ls"})
	rec.EndToolExec(toolCtx, map[string]any{"exit_code": 2}, errors.New("exit status 2"))

	rec.AddEvent(phaseCtx, "step_completed", map[string]any{"index": 0})
	rec.EndPhase(phaseCtx, nil)
	rec.EndRun(runCtx, nil)

	root := rec.Trace().RootSpan
	gt.A(t, root.Children).Length(1)

	phase := root.Children[0]
	gt.Equal(t, phase.Kind, trace.SpanKindPhase)
	gt.Equal(t, phase.Name, "execute")
	gt.Equal(t, phase.ParentID, root.SpanID)
	gt.A(t, phase.Children).Length(3)

	llm := phase.Children[0]
	gt.Equal(t, llm.LLMCall.InputTokens, 100)
	gt.Equal(t, llm.LLMCall.Request.Tools[0], "shell_exec")

	tool := phase.Children[1]
	gt.Equal(t, tool.Status, trace.SpanStatusError)
	gt.Equal(t, tool.ToolExec.ToolName, "shell_exec")
	gt.Equal(t, tool.ToolExec.Error, "exit status 2")
	gt.Equal(t, tool.ToolExec.Result["exit_code"], any(2))

	event := phase.Children[2]
	gt.Equal(t, event.Kind, trace.SpanKindEvent)
	gt.Equal(t, event.Event.Kind, "step_completed")
	gt.Equal(t, event.Duration, time.Duration(0))
}

func TestRecorderIgnoresMismatchedEnd(t *testing.T) {
	rec := newTestRecorder()
	runCtx := rec.StartRun(context.Background())

	// ending a phase with the run context must not close the run span
	rec.EndPhase(runCtx, errors.New("wrong span"))
	root := rec.Trace().RootSpan
	gt.Equal(t, root.Status, trace.SpanStatusOK)
	gt.True(t, root.EndedAt.IsZero())
}

func TestRecorderWithoutRun(t *testing.T) {
	rec := trace.New()
	ctx := context.Background()

	// spans without a root are silently dropped
	llmCtx := rec.StartLLMCall(ctx)
	gt.Equal(t, llmCtx, ctx)
	rec.EndLLMCall(llmCtx, nil, nil)
	rec.AddEvent(ctx, "ignored", nil)

	gt.V(t, rec.Trace()).Nil()
	gt.NoError(t, rec.Finish(ctx))
}

func TestRecorderFinishSaves(t *testing.T) {
	dir := t.TempDir()
	repo := trace.NewFileRepository(dir)
	rec := newTestRecorder(trace.WithRepository(repo), trace.WithTraceID("saved"))

	ctx := rec.StartRun(context.Background())
	rec.EndRun(ctx, errors.New("soft failure"))
	gt.NoError(t, rec.Finish(ctx))

	loaded, err := repo.Load(context.Background(), "saved")
	gt.NoError(t, err).Required()
	gt.Equal(t, loaded.RootSpan.Status, trace.SpanStatusError)
	gt.Equal(t, loaded.RootSpan.Error, "soft failure")
}
