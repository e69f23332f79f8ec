package openai

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/internal/schema"
	"github.com/sashabaranov/go-openai"
)

// convertTool converts taskloop.ToolSpec to openai.Tool
func convertTool(spec *taskloop.ToolSpec) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  schema.ToolToJSONSchema(spec),
		},
	}
}

// toMessages converts provider independent messages into chat completion
// messages. The system prompt, if any, is placed first.
func toMessages(systemPrompt string, messages []taskloop.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	for _, msg := range messages {
		switch msg.Role {
		case taskloop.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Text,
			})

		case taskloop.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Text,
			})

		case taskloop.RoleAssistant:
			m := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Text,
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, goerr.Wrap(err, "failed to marshal tool call arguments",
						goerr.V("id", call.ID),
						goerr.V("name", call.Name),
					)
				}
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, m)

		case taskloop.RoleTool:
			content := msg.Result
			if content == "" {
				content = "{}"
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: msg.ToolCallID,
				Name:       msg.Name,
			})

		default:
			return nil, goerr.Wrap(taskloop.ErrInvalidInput, "unknown message role", goerr.V("role", msg.Role))
		}
	}

	return out, nil
}

// toResponse converts the first choice of a chat completion into a response.
// Arguments that are not a JSON object are passed through under "arguments"
// so the tool layer can report them as invalid.
func toResponse(resp openai.ChatCompletionResponse) *taskloop.Response {
	out := &taskloop.Response{
		InputToken:  resp.Usage.PromptTokens,
		OutputToken: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 {
		return out
	}

	message := resp.Choices[0].Message
	if message.Content != "" {
		out.Texts = append(out.Texts, message.Content)
	}

	for _, call := range message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args == nil {
			args = map[string]any{"arguments": call.Function.Arguments}
		}

		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}

		out.FunctionCalls = append(out.FunctionCalls, &taskloop.FunctionCall{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: args,
		})
	}

	return out
}
