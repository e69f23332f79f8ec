package trace

import (
	"context"
	"errors"
)

// multiHandler fans out trace events to several handlers. Each handler keeps
// its own context so that two Recorders do not share a current span.
type multiHandler struct {
	handlers []Handler
}

// Multi creates a Handler that forwards all events to the given handlers.
func Multi(handlers ...Handler) Handler {
	return &multiHandler{handlers: handlers}
}

type multiCtxKey struct{}

func (m *multiHandler) getContexts(ctx context.Context) []context.Context {
	if v, ok := ctx.Value(multiCtxKey{}).([]context.Context); ok {
		return v
	}
	ctxs := make([]context.Context, len(m.handlers))
	for i := range ctxs {
		ctxs[i] = ctx
	}
	return ctxs
}

func (m *multiHandler) wrapContexts(base context.Context, handlerCtxs []context.Context) context.Context {
	return context.WithValue(base, multiCtxKey{}, handlerCtxs)
}

// fork starts a nested span on every handler from its own parent context.
func (m *multiHandler) fork(ctx context.Context, start func(Handler, context.Context) context.Context) context.Context {
	parents := m.getContexts(ctx)
	children := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = start(h, parents[i])
	}
	return m.wrapContexts(ctx, children)
}

func (m *multiHandler) StartRun(ctx context.Context) context.Context {
	handlerCtxs := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		handlerCtxs[i] = h.StartRun(ctx)
	}
	return m.wrapContexts(ctx, handlerCtxs)
}

func (m *multiHandler) EndRun(ctx context.Context, err error) {
	for i, h := range m.handlers {
		h.EndRun(m.getContexts(ctx)[i], err)
	}
}

func (m *multiHandler) StartLLMCall(ctx context.Context) context.Context {
	return m.fork(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartLLMCall(c)
	})
}

func (m *multiHandler) EndLLMCall(ctx context.Context, data *LLMCallData, err error) {
	for i, h := range m.handlers {
		h.EndLLMCall(m.getContexts(ctx)[i], data, err)
	}
}

func (m *multiHandler) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	return m.fork(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartToolExec(c, toolName, args)
	})
}

func (m *multiHandler) EndToolExec(ctx context.Context, result map[string]any, err error) {
	for i, h := range m.handlers {
		h.EndToolExec(m.getContexts(ctx)[i], result, err)
	}
}

func (m *multiHandler) StartPhase(ctx context.Context, name string) context.Context {
	return m.fork(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartPhase(c, name)
	})
}

func (m *multiHandler) EndPhase(ctx context.Context, err error) {
	for i, h := range m.handlers {
		h.EndPhase(m.getContexts(ctx)[i], err)
	}
}

func (m *multiHandler) AddEvent(ctx context.Context, kind string, data any) {
	for i, h := range m.handlers {
		h.AddEvent(m.getContexts(ctx)[i], kind, data)
	}
}

func (m *multiHandler) Finish(ctx context.Context) error {
	var errs []error
	for _, h := range m.handlers {
		if err := h.Finish(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
