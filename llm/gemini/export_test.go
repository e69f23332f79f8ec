package gemini

import (
	"github.com/m-mizutani/taskloop"
	"google.golang.org/genai"
)

var (
	ConvertTool     = convertTool
	ToContents      = toContents
	ProcessResponse = processResponse
)

type APIClient = apiClient

// NewSessionWithAPIClient creates a session over a custom API client for testing.
func NewSessionWithAPIClient(client APIClient, model string, options ...taskloop.SessionOption) *Session {
	return newSession(client, model, &genai.GenerateContentConfig{}, taskloop.NewSessionConfig(options...))
}
