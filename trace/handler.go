package trace

import "context"

// Handler receives the lifecycle events of a run. Start methods return the
// context to pass to the matching End method and to nested spans.
type Handler interface {
	StartRun(ctx context.Context) context.Context
	EndRun(ctx context.Context, err error)

	// StartPhase opens a span for one phase (plan, execute, update_plan, report).
	StartPhase(ctx context.Context, name string) context.Context
	EndPhase(ctx context.Context, err error)

	StartLLMCall(ctx context.Context) context.Context
	EndLLMCall(ctx context.Context, data *LLMCallData, err error)

	StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context
	EndToolExec(ctx context.Context, result map[string]any, err error)

	AddEvent(ctx context.Context, kind string, data any)

	// Finish completes the trace and performs any final operations.
	Finish(ctx context.Context) error
}
