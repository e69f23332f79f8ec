package main

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/llm/claude"
	"github.com/m-mizutani/taskloop/llm/gemini"
	"github.com/m-mizutani/taskloop/llm/openai"
)

type llmConfig struct {
	provider    string
	model       string
	apiKey      string
	baseURL     string
	gcpProject  string
	gcpLocation string
	temperature float64
	maxTokens   int
}

// newLLMClient builds the client of the configured provider. Empty settings
// keep each provider's defaults.
func newLLMClient(ctx context.Context, cfg llmConfig) (taskloop.LLMClient, error) {
	switch cfg.provider {
	case "openai":
		var opts []openai.Option
		if cfg.model != "" {
			opts = append(opts, openai.WithModel(cfg.model))
		}
		if cfg.baseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.baseURL))
		}
		if cfg.temperature > 0 {
			opts = append(opts, openai.WithTemperature(float32(cfg.temperature)))
		}
		if cfg.maxTokens > 0 {
			opts = append(opts, openai.WithMaxTokens(cfg.maxTokens))
		}
		return openai.New(ctx, cfg.apiKey, opts...)

	case "claude":
		var opts []claude.Option
		if cfg.model != "" {
			opts = append(opts, claude.WithModel(cfg.model))
		}
		if cfg.baseURL != "" {
			opts = append(opts, claude.WithBaseURL(cfg.baseURL))
		}
		if cfg.temperature > 0 {
			opts = append(opts, claude.WithTemperature(cfg.temperature))
		}
		if cfg.maxTokens > 0 {
			opts = append(opts, claude.WithMaxTokens(int64(cfg.maxTokens)))
		}
		return claude.New(ctx, cfg.apiKey, opts...)

	case "gemini":
		var opts []gemini.Option
		if cfg.model != "" {
			opts = append(opts, gemini.WithModel(cfg.model))
		}
		if cfg.baseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.baseURL))
		}
		if cfg.temperature > 0 {
			opts = append(opts, gemini.WithTemperature(float32(cfg.temperature)))
		}
		if cfg.maxTokens > 0 {
			opts = append(opts, gemini.WithMaxTokens(int32(cfg.maxTokens)))
		}
		if cfg.gcpProject != "" {
			return gemini.New(ctx, cfg.gcpProject, cfg.gcpLocation, opts...)
		}
		return gemini.NewWithAPIKey(ctx, cfg.apiKey, opts...)

	default:
		return nil, goerr.New("unknown LLM provider", goerr.V("provider", cfg.provider))
	}
}
