// Package logger provides a trace.Handler that writes run events to slog.
package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/taskloop/trace"
)

// Event is a class of trace event that can be enabled selectively.
type Event int

const (
	Run Event = iota
	Phase
	// LLMRequest logs the messages and tool names sent to the model.
	LLMRequest
	// LLMResponse logs texts, tool calls and token usage.
	LLMResponse
	ToolExec
	CustomEvent

	eventCount
)

type config struct {
	logger *slog.Logger
	events map[Event]bool
}

// Option configures the logger handler.
type Option func(*config)

// WithLogger sets the logger. Without it the logger in the context is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEvents enables only the specified event types.
// When not specified, all events are enabled.
func WithEvents(events ...Event) Option {
	return func(c *config) {
		c.events = make(map[Event]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}
}

type handler struct {
	cfg config
}

// New creates a new trace.Handler that logs trace events via slog.
func New(opts ...Option) trace.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.events == nil {
		cfg.events = make(map[Event]bool, eventCount)
		for i := Event(0); i < eventCount; i++ {
			cfg.events[i] = true
		}
	}

	return &handler{cfg: cfg}
}

func (h *handler) logger(ctx context.Context) *slog.Logger {
	if h.cfg.logger != nil {
		return h.cfg.logger
	}
	return ctxlog.From(ctx)
}

func (h *handler) enabled(e Event) bool {
	return h.cfg.events[e]
}

// spanInfo is kept in the context between Start and End.
type spanInfo struct {
	name      string
	args      map[string]any
	startedAt time.Time
}

type spanInfoKey struct{}

func withSpanInfo(ctx context.Context, info spanInfo) context.Context {
	return context.WithValue(ctx, spanInfoKey{}, info)
}

func spanInfoFrom(ctx context.Context) spanInfo {
	info, _ := ctx.Value(spanInfoKey{}).(spanInfo)
	return info
}

func withError(attrs []any, err error) []any {
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	return attrs
}

func (h *handler) StartRun(ctx context.Context) context.Context {
	if h.enabled(Run) {
		h.logger(ctx).InfoContext(ctx, "run started")
	}
	return withSpanInfo(ctx, spanInfo{name: "run", startedAt: time.Now()})
}

func (h *handler) EndRun(ctx context.Context, err error) {
	if !h.enabled(Run) {
		return
	}
	attrs := withError([]any{
		slog.Duration("duration", time.Since(spanInfoFrom(ctx).startedAt)),
	}, err)
	h.logger(ctx).InfoContext(ctx, "run ended", attrs...)
}

func (h *handler) StartPhase(ctx context.Context, name string) context.Context {
	if h.enabled(Phase) {
		h.logger(ctx).InfoContext(ctx, "phase started", slog.String("phase", name))
	}
	return withSpanInfo(ctx, spanInfo{name: name, startedAt: time.Now()})
}

func (h *handler) EndPhase(ctx context.Context, err error) {
	if !h.enabled(Phase) {
		return
	}
	info := spanInfoFrom(ctx)
	attrs := withError([]any{
		slog.String("phase", info.name),
		slog.Duration("duration", time.Since(info.startedAt)),
	}, err)
	h.logger(ctx).InfoContext(ctx, "phase ended", attrs...)
}

func (h *handler) StartLLMCall(ctx context.Context) context.Context {
	return withSpanInfo(ctx, spanInfo{name: "llm_call", startedAt: time.Now()})
}

// EndLLMCall logs token usage whenever LLMRequest or LLMResponse is enabled,
// and the payload of each enabled side.
func (h *handler) EndLLMCall(ctx context.Context, data *trace.LLMCallData, err error) {
	reqEnabled := h.enabled(LLMRequest)
	respEnabled := h.enabled(LLMResponse)
	if !reqEnabled && !respEnabled {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(spanInfoFrom(ctx).startedAt)),
	}
	if data != nil {
		attrs = append(attrs,
			slog.String("model", data.Model),
			slog.Int("input_tokens", data.InputTokens),
			slog.Int("output_tokens", data.OutputTokens),
		)
		if reqEnabled && data.Request != nil {
			attrs = append(attrs, slog.Any("request", data.Request))
		}
		if respEnabled && data.Response != nil {
			attrs = append(attrs, slog.Any("response", data.Response))
		}
	}

	h.logger(ctx).InfoContext(ctx, "llm call", withError(attrs, err)...)
}

func (h *handler) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	return withSpanInfo(ctx, spanInfo{name: toolName, args: args, startedAt: time.Now()})
}

func (h *handler) EndToolExec(ctx context.Context, result map[string]any, err error) {
	if !h.enabled(ToolExec) {
		return
	}

	info := spanInfoFrom(ctx)
	attrs := withError([]any{
		slog.String("tool", info.name),
		slog.Any("args", info.args),
		slog.Duration("duration", time.Since(info.startedAt)),
		slog.Any("result", result),
	}, err)
	h.logger(ctx).InfoContext(ctx, "tool execution", attrs...)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	if !h.enabled(CustomEvent) {
		return
	}
	h.logger(ctx).InfoContext(ctx, "event",
		slog.String("kind", kind),
		slog.Any("data", data),
	)
}

// Finish is a no-op. Persistence belongs to trace.Recorder.
func (h *handler) Finish(_ context.Context) error {
	return nil
}
