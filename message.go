package taskloop

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// MessageRole represents the role of a message in a conversation
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool" // Tool response (unified across all providers)
)

// Message is a provider independent conversation entry. Each LLM client
// converts it into its own wire format.
type Message struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text,omitempty"`

	// ToolCalls is set on assistant messages that request tools.
	ToolCalls []*FunctionCall `json:"tool_calls,omitempty"`

	// Tool response fields. Result carries the JSON encoded result map.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Result     string `json:"result,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ResultMap decodes Result of a tool message. An empty Result yields an empty map.
func (m Message) ResultMap() (map[string]any, error) {
	out := map[string]any{}
	if m.Result == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(m.Result), &out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tool result", goerr.V("tool_call_id", m.ToolCallID))
	}
	return out, nil
}

func toolResultMessage(resp FunctionResponse) (Message, error) {
	data := resp.Data
	if resp.Error != nil {
		data = map[string]any{"error": resp.Error.Error()}
		for k, v := range resp.Data {
			data[k] = v
		}
	}
	if data == nil {
		data = map[string]any{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, goerr.Wrap(err, "failed to encode tool result",
			goerr.V("id", resp.ID),
			goerr.V("name", resp.Name),
		)
	}

	return Message{
		Role:       RoleTool,
		ToolCallID: resp.ID,
		Name:       resp.Name,
		Result:     string(raw),
		IsError:    resp.Error != nil,
	}, nil
}
