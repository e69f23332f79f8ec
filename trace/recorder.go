package trace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository the trace is saved to on Finish.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

func WithMetadata(meta TraceMetadata) Option {
	return func(r *Recorder) {
		r.metadata = meta
	}
}

// WithTraceID sets a custom trace ID. A UUID v7 is generated when empty.
func WithTraceID(id string) Option {
	return func(r *Recorder) {
		r.traceID = id
	}
}

// Recorder builds the span tree of a run in memory. It implements Handler.
type Recorder struct {
	mu       sync.Mutex
	trace    *Trace
	repo     Repository
	metadata TraceMetadata
	traceID  string
	now      func() time.Time
}

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type handlerKey struct{}
type currentSpanKey struct{}

// WithHandler stores the Handler in the context.
func WithHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

// HandlerFrom retrieves the Handler from the context. Returns nil if not set.
func HandlerFrom(ctx context.Context) Handler {
	h, _ := ctx.Value(handlerKey{}).(Handler)
	return h
}

func withCurrentSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, currentSpanKey{}, span)
}

func currentSpanFrom(ctx context.Context) *Span {
	s, _ := ctx.Value(currentSpanKey{}).(*Span)
	return s
}

// StartRun opens the root span and starts a new trace.
func (r *Recorder) StartRun(ctx context.Context) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	span := &Span{
		SpanID:    uuid.New().String(),
		Kind:      SpanKindRun,
		Name:      "run",
		StartedAt: now,
		Status:    SpanStatusOK,
	}

	traceID := r.traceID
	if traceID == "" {
		traceID = uuid.Must(uuid.NewV7()).String()
	}

	r.trace = &Trace{
		TraceID:   traceID,
		RootSpan:  span,
		Metadata:  r.metadata,
		StartedAt: now,
	}

	return withCurrentSpan(ctx, span)
}

func (r *Recorder) EndRun(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.closeSpan(ctx, SpanKindRun, err)
	if span != nil && r.trace != nil {
		r.trace.EndedAt = span.EndedAt
	}
}

func (r *Recorder) StartPhase(ctx context.Context, name string) context.Context {
	return r.openSpan(ctx, &Span{Kind: SpanKindPhase, Name: name})
}

func (r *Recorder) EndPhase(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeSpan(ctx, SpanKindPhase, err)
}

func (r *Recorder) StartLLMCall(ctx context.Context) context.Context {
	return r.openSpan(ctx, &Span{Kind: SpanKindLLMCall, Name: "llm_call"})
}

func (r *Recorder) EndLLMCall(ctx context.Context, data *LLMCallData, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if span := r.closeSpan(ctx, SpanKindLLMCall, err); span != nil {
		span.LLMCall = data
	}
}

func (r *Recorder) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	return r.openSpan(ctx, &Span{
		Kind: SpanKindToolExec,
		Name: toolName,
		ToolExec: &ToolExecData{
			ToolName: toolName,
			Args:     args,
		},
	})
}

func (r *Recorder) EndToolExec(ctx context.Context, result map[string]any, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.closeSpan(ctx, SpanKindToolExec, err)
	if span == nil || span.ToolExec == nil {
		return
	}
	span.ToolExec.Result = result
	if err != nil {
		span.ToolExec.Error = err.Error()
	}
}

// AddEvent appends a zero-length event span to the current span.
func (r *Recorder) AddEvent(ctx context.Context, kind string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return
	}

	now := r.now()
	parent.Children = append(parent.Children, &Span{
		SpanID:    uuid.New().String(),
		ParentID:  parent.SpanID,
		Kind:      SpanKindEvent,
		Name:      kind,
		StartedAt: now,
		EndedAt:   now,
		Status:    SpanStatusOK,
		Event: &EventData{
			Kind: kind,
			Data: data,
		},
	})
}

// Finish saves the trace to the repository, if any.
func (r *Recorder) Finish(ctx context.Context) error {
	r.mu.Lock()
	trace := r.trace
	repo := r.repo
	r.mu.Unlock()

	if trace == nil || repo == nil {
		return nil
	}
	return repo.Save(ctx, trace)
}

// Trace returns the current trace data. Returns nil if no run was started.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace
}

// openSpan attaches span to the current span. Without a current span the
// context is returned unchanged.
func (r *Recorder) openSpan(ctx context.Context, span *Span) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return ctx
	}

	span.SpanID = uuid.New().String()
	span.ParentID = parent.SpanID
	span.StartedAt = r.now()
	span.Status = SpanStatusOK

	parent.Children = append(parent.Children, span)
	return withCurrentSpan(ctx, span)
}

// closeSpan ends the current span if it has the expected kind. r.mu must be held.
func (r *Recorder) closeSpan(ctx context.Context, kind SpanKind, err error) *Span {
	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != kind {
		return nil
	}

	span.EndedAt = r.now()
	span.Duration = span.EndedAt.Sub(span.StartedAt)
	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
	return span
}
