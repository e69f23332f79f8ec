package gemini

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"google.golang.org/genai"
)

var (
	geminiPromptScope   = ctxlog.NewScope("gemini_prompt", ctxlog.EnabledBy("TASKLOOP_LOGGING_GEMINI_PROMPT"))
	geminiResponseScope = ctxlog.NewScope("gemini_response", ctxlog.EnabledBy("TASKLOOP_LOGGING_GEMINI_RESPONSE"))
)

const (
	DefaultModel = "gemini-2.5-flash"
)

// Client is a client for the Gemini API. It talks to either Vertex AI or the
// Gemini Developer API depending on the constructor.
type Client struct {
	client *genai.Client

	defaultModel string
	baseURL      string

	temperature *float32
	maxTokens   int32
}

// Option is a configuration option for the Gemini client.
type Option func(*Client)

// WithModel sets the default model to use for text generation.
// Default: [DefaultModel]
func WithModel(model string) Option {
	return func(c *Client) {
		c.defaultModel = model
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int32) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// New creates a new client for Gemini on Vertex AI.
func New(ctx context.Context, projectID, location string, options ...Option) (*Client, error) {
	if projectID == "" {
		return nil, goerr.Wrap(taskloop.ErrInvalidParameter, "projectID is required")
	}
	if location == "" {
		return nil, goerr.Wrap(taskloop.ErrInvalidParameter, "location is required")
	}

	return newClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}, options...)
}

// NewWithAPIKey creates a new client for the Gemini Developer API.
func NewWithAPIKey(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(taskloop.ErrInvalidParameter, "API key is required")
	}

	return newClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, options...)
}

func newClient(ctx context.Context, config *genai.ClientConfig, options ...Option) (*Client, error) {
	client := &Client{
		defaultModel: DefaultModel,
	}
	for _, option := range options {
		option(client)
	}

	if client.baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: client.baseURL}
	}

	c, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}
	client.client = c

	return client, nil
}

// Session is a session for the Gemini chat.
type Session struct {
	apiClient apiClient

	defaultModel string
	config       *genai.GenerateContentConfig

	history *taskloop.History
}

// NewSession creates a new session for the Gemini API.
func (c *Client) NewSession(ctx context.Context, options ...taskloop.SessionOption) (taskloop.Session, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxTokens,
	}
	return newSession(&realAPIClient{client: c.client}, c.defaultModel, config, taskloop.NewSessionConfig(options...)), nil
}

func newSession(client apiClient, model string, config *genai.GenerateContentConfig, cfg taskloop.SessionConfig) *Session {
	if prompt := cfg.SystemPrompt(); prompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt}},
		}
	}

	if len(cfg.Tools()) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(cfg.Tools()))
		for _, spec := range cfg.Tools() {
			decls = append(decls, convertTool(spec))
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	history := cfg.History()
	if history == nil {
		history = taskloop.NewHistory()
	}

	return &Session{
		apiClient:    client,
		defaultModel: model,
		config:       config,
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

	contents, err := toContents(append(append([]taskloop.Message{}, s.history.Messages...), newMessages...))
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, goerr.Wrap(taskloop.ErrInvalidInput, "no content to send")
	}

	logger := ctxlog.From(ctx, geminiPromptScope)
	if logger.Enabled(ctx, slog.LevelInfo) {
		logger.Info("Gemini prompt", "model", s.defaultModel, "messages", newMessages)
	}

	resp, err := s.apiClient.GenerateContent(ctx, s.defaultModel, contents, s.config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", s.defaultModel))
	}

	response := processResponse(resp)

	responseLogger := ctxlog.From(ctx, geminiResponseScope)
	if responseLogger.Enabled(ctx, slog.LevelInfo) {
		responseLogger.Info("Gemini response",
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
