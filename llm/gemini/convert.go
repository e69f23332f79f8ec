package gemini

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// convertTool converts taskloop.ToolSpec to a Gemini function declaration
func convertTool(spec *taskloop.ToolSpec) *genai.FunctionDeclaration {
	// Gemini rejects a nil Required
	required := append([]string{}, spec.Required...)

	parameters := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(spec.Parameters)),
		Required:   required,
	}
	for name, param := range spec.Parameters {
		parameters.Properties[name] = convertParameterToSchema(param)
	}

	return &genai.FunctionDeclaration{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters:  parameters,
	}
}

func convertParameterToSchema(param *taskloop.Parameter) *genai.Schema {
	schema := &genai.Schema{
		Type:        getGeminiType(param.Type),
		Description: param.Description,
	}

	if len(param.Enum) > 0 {
		schema.Enum = param.Enum
	}

	if param.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema, len(param.Properties))
		for name, prop := range param.Properties {
			schema.Properties[name] = convertParameterToSchema(prop)
		}
		schema.Required = append([]string{}, param.Required...)
	}

	if param.Items != nil {
		schema.Items = convertParameterToSchema(param.Items)
	}

	return schema
}

func getGeminiType(paramType taskloop.ParameterType) genai.Type {
	switch paramType {
	case taskloop.TypeString:
		return genai.TypeString
	case taskloop.TypeNumber:
		return genai.TypeNumber
	case taskloop.TypeInteger:
		return genai.TypeInteger
	case taskloop.TypeBoolean:
		return genai.TypeBoolean
	case taskloop.TypeArray:
		return genai.TypeArray
	case taskloop.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// toContents converts provider independent messages into Gemini contents.
// Tool results are sent as user function responses; system messages in the
// middle of a conversation become user text. Consecutive contents of the same
// role are merged.
func toContents(messages []taskloop.Message) ([]*genai.Content, error) {
	var out []*genai.Content

	push := func(role string, parts ...*genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, msg := range messages {
		switch msg.Role {
		case taskloop.RoleSystem, taskloop.RoleUser:
			if msg.Text != "" {
				push(roleUser, &genai.Part{Text: msg.Text})
			}

		case taskloop.RoleAssistant:
			var parts []*genai.Part
			if msg.Text != "" {
				parts = append(parts, &genai.Part{Text: msg.Text})
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: call.Name,
						Args: call.Arguments,
					},
				})
			}
			push(roleModel, parts...)

		case taskloop.RoleTool:
			result, err := msg.ResultMap()
			if err != nil {
				return nil, err
			}
			push(roleUser, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.Name,
					Response: result,
				},
			})

		default:
			return nil, goerr.Wrap(taskloop.ErrInvalidInput, "unknown message role", goerr.V("role", msg.Role))
		}
	}

	return out, nil
}

// processResponse converts the first candidate into taskloop.Response.
// Thought parts are dropped.
func processResponse(resp *genai.GenerateContentResponse) *taskloop.Response {
	response := &taskloop.Response{}
	if resp == nil {
		return response
	}

	if resp.UsageMetadata != nil {
		response.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		response.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return response
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			response.Texts = append(response.Texts, part.Text)
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			response.FunctionCalls = append(response.FunctionCalls, &taskloop.FunctionCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}

	return response
}
