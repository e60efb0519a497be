// Package sitegen asks the configured model to write a portfolio site for a resume.
package sitegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/shared/telemetry"
)

// ErrGenerationFailed marks provider failures. The provider error stays in the chain.
var ErrGenerationFailed = errors.New("site generation failed")

// Result is the unvalidated model reply plus the audit data of the call.
type Result struct {
	Raw        string
	PromptHash string
	Provider   string
	Model      string
}

// Generator performs exactly one completion per call. It never retries.
type Generator struct {
	Client   llm.Client
	Provider string
	Model    string
}

// New returns a Generator bound to client.
func New(client llm.Client, provider, model string) *Generator {
	return &Generator{Client: client, Provider: provider, Model: model}
}

// Generate sends the site prompt for resumeText and returns the raw reply.
func (g *Generator) Generate(ctx context.Context, resumeText string) (Result, error) {
	if g == nil || g.Client == nil {
		return Result{}, fmt.Errorf("%w: no llm client configured", ErrGenerationFailed)
	}
	messages := llm.SitePrompt(resumeText)
	result := Result{
		PromptHash: llm.PromptHash(messages),
		Provider:   g.Provider,
		Model:      g.Model,
	}

	start := time.Now()
	raw, err := g.Client.Complete(ctx, messages)
	if err != nil {
		telemetry.Error("generation.llm_failed", map[string]any{
			"provider":    g.Provider,
			"model":       g.Model,
			"duration_ms": telemetry.SinceMs(start),
			"error":       err,
		})
		return result, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	telemetry.Info("generation.llm_complete", map[string]any{
		"provider":     g.Provider,
		"model":        g.Model,
		"prompt_hash":  result.PromptHash,
		"resume_chars": len(resumeText),
		"output_chars": len(raw),
		"duration_ms":  telemetry.SinceMs(start),
	})
	result.Raw = raw
	return result, nil
}
