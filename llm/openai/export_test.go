package openai

import (
	"github.com/m-mizutani/taskloop"
)

var (
	ConvertTool = convertTool
	ToMessages  = toMessages
	ToResponse  = toResponse
)

type APIClient = apiClient

// NewSessionWithAPIClient creates a session over a custom API client for testing.
func NewSessionWithAPIClient(client APIClient, model string, options ...taskloop.SessionOption) *Session {
	return newSession(client, model, generationParameters{}, taskloop.NewSessionConfig(options...))
}
