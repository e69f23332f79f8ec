package taskloop

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop/trace"
)

// generate sends one request to the model inside an llm_call span.
func generate(ctx context.Context, session Session, toolNames []string, inputs ...Input) (*Response, error) {
	h := trace.HandlerFrom(ctx)
	if h != nil {
		ctx = h.StartLLMCall(ctx)
	}

	promptLogger := ctxlog.From(ctx, promptScope)
	for _, in := range inputs {
		promptLogger.Info("send prompt", slog.Any("input", in))
	}

	resp, err := session.GenerateContent(ctx, inputs...)
	if err != nil {
		err = goerr.Wrap(err, "failed to generate content")
	}

	if h != nil {
		h.EndLLMCall(ctx, newLLMCallData(inputs, toolNames, resp), err)
	}
	if err != nil {
		return nil, err
	}

	ctxlog.From(ctx, responseScope).Info("receive response",
		slog.Any("texts", resp.Texts),
		slog.Any("function_calls", resp.FunctionCalls),
		slog.Int("input_token", resp.InputToken),
		slog.Int("output_token", resp.OutputToken),
	)
	return resp, nil
}

func newLLMCallData(inputs []Input, toolNames []string, resp *Response) *trace.LLMCallData {
	data := &trace.LLMCallData{
		Request: &trace.LLMRequest{Tools: toolNames},
	}
	for _, in := range inputs {
		role := string(RoleUser)
		switch in.(type) {
		case SystemText:
			role = string(RoleSystem)
		case FunctionResponse:
			role = string(RoleTool)
		}
		data.Request.Messages = append(data.Request.Messages, trace.Message{Role: role, Content: in.String()})
	}

	if resp != nil {
		data.InputTokens = resp.InputToken
		data.OutputTokens = resp.OutputToken
		data.Response = &trace.LLMResponse{Texts: resp.Texts}
		for _, fc := range resp.FunctionCalls {
			data.Response.FunctionCalls = append(data.Response.FunctionCalls, &trace.FunctionCall{
				ID:        fc.ID,
				Name:      fc.Name,
				Arguments: fc.Arguments,
			})
		}
	}
	return data
}

// runToolCalls dispatches calls sequentially in the given order. A failing
// call is reported back to the model as an error result; it never stops the
// batch.
func runToolCalls(ctx context.Context, tools ToolSet, calls []*FunctionCall) []Input {
	logger := ctxlog.From(ctx)
	results := make([]Input, 0, len(calls))

	for _, call := range calls {
		callCtx := ctx
		h := trace.HandlerFrom(ctx)
		if h != nil {
			callCtx = h.StartToolExec(ctx, call.Name, call.Arguments)
		}

		result, err := tools.Run(callCtx, call.Name, call.Arguments)

		if h != nil {
			h.EndToolExec(callCtx, result, err)
		}

		switch {
		case errors.Is(err, ErrUnknownTool):
			logger.Warn("skip unknown tool", slog.String("name", call.Name), slog.String("id", call.ID))
		case err != nil:
			logger.Info("tool returned error",
				slog.String("name", call.Name),
				slog.Any("error", err),
			)
		default:
			logger.Info("tool executed", slog.String("name", call.Name), slog.Any("args", call.Arguments))
		}

		results = append(results, FunctionResponse{
			ID:    call.ID,
			Name:  call.Name,
			Data:  result,
			Error: err,
		})
	}

	return results
}

func specNames(specs []*ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}
