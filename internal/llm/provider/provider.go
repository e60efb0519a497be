// Package provider selects the LLM client for the configured provider.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/llm/anthropic"
	"portfolio-backend/internal/llm/gemini"
	"portfolio-backend/internal/llm/openai"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/telemetry"
)

// Info names the provider and model a client talks to.
type Info struct {
	Provider string
	Model    string
}

// New builds the client for cfg.LLMProvider. A missing credential falls back
// to llm.PlaceholderClient so the service can still start. An empty model
// resolves to the provider's default.
func New(ctx context.Context, cfg config.Config) (llm.Client, Info, error) {
	if strings.TrimSpace(cfg.LLMModel) == "" {
		cfg.LLMModel = config.DefaultModel(cfg.LLMProvider)
	}
	info := Info{Provider: cfg.LLMProvider, Model: cfg.LLMModel}
	opts := llm.Options{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
	}

	apiKey := strings.TrimSpace(cfg.APIKey())
	if cfg.LLMProvider == "none" || apiKey == "" {
		telemetry.Warn("llm.placeholder", map[string]any{
			"provider": cfg.LLMProvider,
			"reason":   "no credential configured",
		})
		return llm.PlaceholderClient{}, Info{Provider: "none", Model: cfg.LLMModel}, nil
	}

	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "openai":
		client, err = openai.NewClient(apiKey, opts)
	case "anthropic":
		client, err = anthropic.NewClient(apiKey, opts)
	case "gemini":
		client, err = gemini.NewClient(ctx, apiKey, opts)
	default:
		return nil, info, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, info, fmt.Errorf("init %s client: %w", cfg.LLMProvider, err)
	}
	return client, info, nil
}
