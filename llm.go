package taskloop

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

//go:generate go run github.com/matryer/moq@v0.5.3 -pkg mock -out mock/mock_gen.go . LLMClient Session ToolSet

// LLMClient is a client for each LLM service.
type LLMClient interface {
	NewSession(ctx context.Context, options ...SessionOption) (Session, error)
}

// Session is a single conversation with the LLM. It keeps the messages sent
// and received so far; inputs are committed to the conversation only when the
// LLM call succeeds, so a failed call can be retried with the same inputs.
type Session interface {
	GenerateContent(ctx context.Context, input ...Input) (*Response, error)
	History() *History
}

// FunctionCall is a tool call requested by the LLM.
type FunctionCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Response is a general response type for each LLM.
type Response struct {
	Texts         []string
	FunctionCalls []*FunctionCall
	InputToken    int
	OutputToken   int
}

// Text returns all text parts joined by a newline.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Texts, "\n")
}

// HasFunctionCalls reports whether the LLM requested at least one tool call.
func (r *Response) HasFunctionCalls() bool {
	return r != nil && len(r.FunctionCalls) > 0
}

type Input interface {
	isInput() restrictedValue
	LogValue() slog.Value
	String() string
}

type restrictedValue struct{}

// Text is a text input from the human side of the conversation.
// Usage:
// input := taskloop.Text("Hello, world!")
type Text string

func (t Text) isInput() restrictedValue {
	return restrictedValue{}
}

func (t Text) LogValue() slog.Value {
	return slog.StringValue(string(t))
}

func (t Text) String() string {
	return string(t)
}

// SystemText is an instruction with the system role. Unlike the session
// system prompt, it is placed at its position in the conversation, after any
// seeded history.
type SystemText string

func (t SystemText) isInput() restrictedValue {
	return restrictedValue{}
}

func (t SystemText) LogValue() slog.Value {
	return slog.StringValue(string(t))
}

func (t SystemText) String() string {
	return string(t)
}

// FunctionResponse is a result of a tool call, sent back to the LLM.
// Usage:
//
//	input := taskloop.FunctionResponse{
//		ID:   call.ID,
//		Name: call.Name,
//		Data: map[string]any{"key": "value"},
//	}
type FunctionResponse struct {
	ID    string
	Name  string
	Data  map[string]any
	Error error
}

func (f FunctionResponse) isInput() restrictedValue {
	return restrictedValue{}
}

// String returns a string representation of the FunctionResponse
func (f FunctionResponse) String() string {
	if f.Error != nil {
		return f.Name + " (error: " + f.Error.Error() + ")"
	}
	return f.Name + " (success)"
}

// LogValue returns a slog.Value for the FunctionResponse
func (f FunctionResponse) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", f.ID),
		slog.String("name", f.Name),
	}

	if f.Data != nil {
		attrs = append(attrs, slog.Any("data", f.Data))
	}

	if f.Error != nil {
		attrs = append(attrs, slog.String("error", f.Error.Error()))
	}

	return slog.GroupValue(attrs...)
}

// SessionConfig is the resolved set of session options. LLM clients read it
// in NewSession.
type SessionConfig struct {
	systemPrompt string
	history      *History
	tools        []*ToolSpec
}

// SessionOption configures a new session.
type SessionOption func(*SessionConfig)

// NewSessionConfig applies the options and returns the configuration.
func NewSessionConfig(options ...SessionOption) SessionConfig {
	var cfg SessionConfig
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

func (c SessionConfig) SystemPrompt() string { return c.systemPrompt }
func (c SessionConfig) History() *History    { return c.history }
func (c SessionConfig) Tools() []*ToolSpec   { return c.tools }

// WithSessionSystemPrompt sets the system prompt placed at the top of the conversation.
func WithSessionSystemPrompt(prompt string) SessionOption {
	return func(c *SessionConfig) {
		c.systemPrompt = prompt
	}
}

// WithSessionHistory seeds the session with prior messages. The session works
// on a copy; the given history is never modified.
func WithSessionHistory(history *History) SessionOption {
	return func(c *SessionConfig) {
		c.history = history.Clone()
	}
}

// WithSessionTools binds tool schemas to the session.
func WithSessionTools(tools ...*ToolSpec) SessionOption {
	return func(c *SessionConfig) {
		c.tools = append(c.tools, tools...)
	}
}

// InputsToMessages converts inputs into role-tagged messages. A FunctionResponse
// with an error is converted into an error-flagged tool message.
func InputsToMessages(inputs ...Input) ([]Message, error) {
	messages := make([]Message, 0, len(inputs))
	for _, in := range inputs {
		switch v := in.(type) {
		case Text:
			messages = append(messages, Message{Role: RoleUser, Text: string(v)})
		case SystemText:
			messages = append(messages, Message{Role: RoleSystem, Text: string(v)})
		case FunctionResponse:
			msg, err := toolResultMessage(v)
			if err != nil {
				return nil, err
			}
			messages = append(messages, msg)
		default:
			return nil, goerr.Wrap(ErrInvalidInput, "unsupported input type", goerr.V("input", in))
		}
	}
	return messages, nil
}

// ResponseToMessage converts a LLM response into an assistant message.
func ResponseToMessage(resp *Response) Message {
	return Message{
		Role:      RoleAssistant,
		Text:      resp.Text(),
		ToolCalls: resp.FunctionCalls,
	}
}
