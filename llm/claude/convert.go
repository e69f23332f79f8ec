package claude

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/internal/schema"
)

func convertTool(spec *taskloop.ToolSpec) anthropic.ToolUnionParam {
	tool := anthropic.ToolUnionParamOfTool(
		anthropic.ToolInputSchemaParam{
			Properties: schema.ToolProperties(spec),
			Required:   schema.RequiredFields(spec),
		},
		spec.Name,
	)
	if spec.Description != "" {
		tool.OfTool.Description = anthropic.String(spec.Description)
	}
	return tool
}

// toMessages converts provider independent messages into Claude messages.
// Claude has no system role inside the conversation and requires roles to
// alternate, so system messages become user text and consecutive messages of
// the same role are merged into one.
func toMessages(messages []taskloop.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam

	push := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, msg := range messages {
		switch msg.Role {
		case taskloop.RoleSystem, taskloop.RoleUser:
			if msg.Text != "" {
				push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Text))
			}

		case taskloop.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
			}
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			push(anthropic.MessageParamRoleAssistant, blocks...)

		case taskloop.RoleTool:
			content := msg.Result
			if content == "" {
				content = "{}"
			}
			push(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, content, msg.IsError))

		default:
			return nil, goerr.Wrap(taskloop.ErrInvalidInput, "unknown message role", goerr.V("role", msg.Role))
		}
	}

	return out, nil
}

// processResponse converts Claude response to taskloop.Response
func processResponse(resp *anthropic.Message) *taskloop.Response {
	response := &taskloop.Response{
		InputToken:  int(resp.Usage.InputTokens),
		OutputToken: int(resp.Usage.OutputTokens),
	}

	for _, content := range resp.Content {
		switch content.Type {
		case "text":
			if content.Text != "" {
				response.Texts = append(response.Texts, content.Text)
			}

		case "tool_use":
			var args map[string]any
			if err := json.Unmarshal(content.Input, &args); err != nil || args == nil {
				args = map[string]any{"arguments": string(content.Input)}
			}

			id := content.ID
			if id == "" {
				id = uuid.NewString()
			}

			response.FunctionCalls = append(response.FunctionCalls, &taskloop.FunctionCall{
				ID:        id,
				Name:      content.Name,
				Arguments: args,
			})
		}
	}

	return response
}
