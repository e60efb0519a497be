package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/shared/telemetry"
)

// Client implements llm.Client on the Gemini API.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewClient constructs a Gemini client. The key comes from configuration, never from source.
func NewClient(ctx context.Context, apiKey string, opts llm.Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required for Gemini")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   int32(opts.MaxTokens),
	}, nil
}

// Complete sends the system instruction and user turns in one generateContent call.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	system, turns := llm.SplitSystem(messages)

	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate model=%s: %w", c.model, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}

	fields := map[string]any{
		"provider":      "gemini",
		"model":         c.model,
		"finish_reason": string(resp.Candidates[0].FinishReason),
	}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)

	return resp.Text(), nil
}

var _ llm.Client = (*Client)(nil)
