package openai

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"github.com/sashabaranov/go-openai"
)

var (
	openaiPromptScope   = ctxlog.NewScope("openai_prompt", ctxlog.EnabledBy("TASKLOOP_LOGGING_OPENAI_PROMPT"))
	openaiResponseScope = ctxlog.NewScope("openai_response", ctxlog.EnabledBy("TASKLOOP_LOGGING_OPENAI_RESPONSE"))
)

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	// Temperature controls randomness in the output. A negative value leaves
	// it to the server default.
	Temperature float32

	// MaxTokens limits the number of tokens to generate.
	MaxTokens int
}

// Client is a client for the OpenAI chat completions API. It also works with
// OpenAI compatible servers such as vLLM through WithBaseURL.
type Client struct {
	client *openai.Client

	// defaultModel is the model to use for chat completions.
	defaultModel string

	// baseURL is the custom base URL. If empty, the OpenAI endpoint is used.
	baseURL string

	params generationParameters
}

const (
	DefaultModel = "gpt-4o"
)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model to use for chat completions.
// See default model in [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// WithBaseURL sets the base URL of the API, e.g. "http://localhost:8000/v1"
// for a self-hosted vLLM server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// New creates a new client for the OpenAI API. apiKey may be empty for
// self-hosted servers that do not check it.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: DefaultModel,
	}

	for _, option := range options {
		option(client)
	}

	if client.defaultModel == "" {
		return nil, goerr.Wrap(taskloop.ErrInvalidParameter, "model is required")
	}

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.client = openai.NewClientWithConfig(config)

	return client, nil
}

// Session is a session for the OpenAI chat. The conversation is kept in the
// provider independent form and converted on every request.
type Session struct {
	apiClient apiClient

	defaultModel string
	params       generationParameters
	systemPrompt string
	tools        []openai.Tool

	history *taskloop.History
}

// NewSession creates a new session for the OpenAI API.
func (c *Client) NewSession(ctx context.Context, options ...taskloop.SessionOption) (taskloop.Session, error) {
	return newSession(&realAPIClient{client: c.client}, c.defaultModel, c.params, taskloop.NewSessionConfig(options...)), nil
}

func newSession(client apiClient, model string, params generationParameters, cfg taskloop.SessionConfig) *Session {
	tools := make([]openai.Tool, 0, len(cfg.Tools()))
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

// GenerateContent sends the conversation with the inputs appended. The inputs
// and the reply are kept only when the request succeeds.
func (s *Session) GenerateContent(ctx context.Context, input ...taskloop.Input) (*taskloop.Response, error) {
	newMessages, err := taskloop.InputsToMessages(input...)
	if err != nil {
		return nil, err
	}

	all := append(append([]taskloop.Message{}, s.history.Messages...), newMessages...)
	messages, err := toMessages(s.systemPrompt, all)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:     s.defaultModel,
		Messages:  messages,
		Tools:     s.tools,
		MaxTokens: s.params.MaxTokens,
	}
	if s.params.Temperature > 0 {
		req.Temperature = s.params.Temperature
	}

	logger := ctxlog.From(ctx, openaiPromptScope)
	if logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("OpenAI prompt", "model", req.Model, "messages", messages)
	}

	resp, err := s.apiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", req.Model))
	}

	response := toResponse(resp)

	responseLogger := ctxlog.From(ctx, openaiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		finishReason := ""
		if len(resp.Choices) > 0 {
			finishReason = string(resp.Choices[0].FinishReason)
		}
		responseLogger.Info("OpenAI response",
			"model", resp.Model,
			"finish_reason", finishReason,
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
