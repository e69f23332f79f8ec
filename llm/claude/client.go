package claude

import (
	"context"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
)

var (
	claudePromptScope   = ctxlog.NewScope("claude_prompt", ctxlog.EnabledBy("TASKLOOP_LOGGING_CLAUDE_PROMPT"))
	claudeResponseScope = ctxlog.NewScope("claude_response", ctxlog.EnabledBy("TASKLOOP_LOGGING_CLAUDE_RESPONSE"))
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 8192
)

type generationParameters struct {
	// Temperature is sent only when positive.
	Temperature float64

	// MaxTokens is required by the Messages API.
	MaxTokens int64
}

// Client is a client for the Anthropic Messages API.
type Client struct {
	client *anthropic.Client

	defaultModel string
	baseURL      string
	params       generationParameters
}

// Option is a configuration option for the Claude client.
type Option func(*Client)

// WithModel sets the default model to use for text generation.
// Default: [DefaultModel]
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: [DefaultMaxTokens]
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// New creates a new client for the Claude API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: DefaultModel,
		params: generationParameters{
			MaxTokens: DefaultMaxTokens,
		},
	}

	for _, option := range options {
		option(client)
	}

	if apiKey == "" {
		return nil, goerr.Wrap(taskloop.ErrInvalidParameter, "API key is required")
	}
	if client.params.MaxTokens <= 0 {
		return nil, goerr.Wrap(taskloop.ErrInvalidParameter, "max tokens must be positive", goerr.V("max_tokens", client.params.MaxTokens))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if client.baseURL != "" {
		opts = append(opts, option.WithBaseURL(client.baseURL))
	}

	newClient := anthropic.NewClient(opts...)
	client.client = &newClient

	return client, nil
}

// Session is a session for the Claude chat.
type Session struct {
	apiClient apiClient

	defaultModel string
	params       generationParameters
	systemPrompt string
	tools        []anthropic.ToolUnionParam

	history *taskloop.History
}

// NewSession creates a new session for the Claude API.
func (c *Client) NewSession(ctx context.Context, options ...taskloop.SessionOption) (taskloop.Session, error) {
	return newSession(&realAPIClient{client: c.client}, c.defaultModel, c.params, taskloop.NewSessionConfig(options...)), nil
}

func newSession(client apiClient, model string, params generationParameters, cfg taskloop.SessionConfig) *Session {
	tools := make([]anthropic.ToolUnionParam, 0, len(cfg.Tools()))
	for _, spec := range cfg.Tools() {
		tools = append(tools, convertTool(spec))
	}

	history := cfg.History()
	if history == nil {
		history = taskloop.NewHistory()
	}

	return &Session{
		apiClient:    client,
		defaultModel: model,
		params:       params,
		systemPrompt: cfg.SystemPrompt(),
		tools:        tools,
		history:      history,
	}
}

// History returns a copy of the conversation.
func (s *Session) History() *taskloop.History {
	return s.history.Clone()
}

func (s *Session) createRequest(messages []anthropic.MessageParam) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.defaultModel),
		MaxTokens: s.params.MaxTokens,
		Messages:  messages,
		Tools:     s.tools,
	}
	if s.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: s.systemPrompt}}
	}
	if s.params.Temperature > 0 {
		params.Temperature = anthropic.Float(s.params.Temperature)
	}
	return params
}

// GenerateContent sends the conversation with the inputs appended. The inputs
// and the reply are kept only when the request succeeds.
func (s *Session) GenerateContent(ctx context.Context, input ...taskloop.Input) (*taskloop.Response, error) {
	newMessages, err := taskloop.InputsToMessages(input...)
	if err != nil {
		return nil, err
	}

	messages, err := toMessages(append(append([]taskloop.Message{}, s.history.Messages...), newMessages...))
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, goerr.Wrap(taskloop.ErrInvalidInput, "no message to send")
	}

	params := s.createRequest(messages)

	logger := ctxlog.From(ctx, claudePromptScope)
	if logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Claude prompt",
			"model", s.defaultModel,
			"system_prompt", s.systemPrompt,
			"messages", newMessages,
		)
	}

	resp, err := s.apiClient.MessagesNew(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V("model", s.defaultModel))
	}

	response := processResponse(resp)

	responseLogger := ctxlog.From(ctx, claudeResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("Claude response",
			"model", resp.Model,
			"stop_reason", resp.StopReason,
			"texts", response.Texts,
			"function_calls", response.FunctionCalls,
			"input_token", response.InputToken,
			"output_token", response.OutputToken,
		)
	}

	s.history.Append(newMessages...)
	s.history.Append(taskloop.ResponseToMessage(response))

	return response, nil
}
