// Package otel bridges run trace events to OpenTelemetry spans.
//
//	orch := taskloop.New(client, tools, ws, taskloop.WithTrace(otel.New()))
//
// The global TracerProvider is used unless WithTracerProvider is given.
package otel

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/taskloop/trace"
	otelAPI "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/m-mizutani/taskloop"
)

// Option is a functional option for configuring the OTel handler.
type Option func(*handler)

// WithTracerProvider sets an explicit TracerProvider.
func WithTracerProvider(tp otelTrace.TracerProvider) Option {
	return func(h *handler) {
		h.tracerProvider = tp
	}
}

type handler struct {
	tracerProvider otelTrace.TracerProvider
	tracer         otelTrace.Tracer
}

// New creates a new OTel trace handler.
func New(opts ...Option) trace.Handler {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.tracerProvider == nil {
		h.tracerProvider = otelAPI.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)

	return h
}

func endSpan(ctx context.Context, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *handler) StartRun(ctx context.Context) context.Context {
	ctx, _ = h.tracer.Start(ctx, "run",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	return ctx
}

func (h *handler) EndRun(ctx context.Context, err error) {
	endSpan(ctx, err)
}

func (h *handler) StartPhase(ctx context.Context, name string) context.Context {
	ctx, _ = h.tracer.Start(ctx, "phase:"+name,
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
		otelTrace.WithAttributes(phaseNameAttr(name)),
	)
	return ctx
}

func (h *handler) EndPhase(ctx context.Context, err error) {
	endSpan(ctx, err)
}

func (h *handler) StartLLMCall(ctx context.Context) context.Context {
	ctx, _ = h.tracer.Start(ctx, "llm_call",
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
	)
	return ctx
}

func (h *handler) EndLLMCall(ctx context.Context, data *trace.LLMCallData, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if data != nil {
		span.SetAttributes(
			llmModelAttr(data.Model),
			llmInputTokensAttr(data.InputTokens),
			llmOutputTokensAttr(data.OutputTokens),
		)
		if data.Response != nil {
			span.SetAttributes(llmToolCallsAttr(len(data.Response.FunctionCalls)))
		}
	}
	endSpan(ctx, err)
}

func (h *handler) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	ctx, span := h.tracer.Start(ctx, "tool:"+toolName,
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	span.SetAttributes(toolNameAttr(toolName))
	if args != nil {
		if b, err := json.Marshal(args); err == nil {
			span.SetAttributes(toolArgsAttr(string(b)))
		}
	}
	return ctx
}

func (h *handler) EndToolExec(ctx context.Context, _ map[string]any, err error) {
	endSpan(ctx, err)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	span := otelTrace.SpanFromContext(ctx)
	if data == nil {
		span.AddEvent(kind)
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		span.AddEvent(kind)
		return
	}
	span.AddEvent(kind, otelTrace.WithAttributes(eventDataAttr(string(b))))
}

// Finish is a no-op. Spans are exported by the TracerProvider.
func (h *handler) Finish(_ context.Context) error {
	return nil
}
