package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_TEMPERATURE", "")

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "gemini-2.5-flash-lite" {
		t.Fatalf("unexpected model %q", cfg.LLMModel)
	}
	if cfg.LLMTemperature != 0.25 {
		t.Fatalf("expected temperature 0.25, got %v", cfg.LLMTemperature)
	}
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitegen.toml")
	content := "llm_provider = \"openai\"\nllm_model = \"gpt-4o-mini\"\nport = \"9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "gpt-4.1-mini")
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected provider from file, got %q", cfg.LLMProvider)
	}
	if cfg.LLMModel != "gpt-4.1-mini" {
		t.Fatalf("expected env to override model, got %q", cfg.LLMModel)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected port from file, got %q", cfg.Port)
	}
}

func TestLoadResolvesModelForProvider(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OPENAI_API_KEY", "x")

	tests := []struct {
		provider string
		want     string
	}{
		{provider: "openai", want: DefaultOpenAIModel},
		{provider: "claude", want: DefaultAnthropicModel},
		{provider: "google", want: DefaultGeminiModel},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", tt.provider)
			cfg := Load()
			if cfg.LLMModel != tt.want {
				t.Fatalf("provider %s: expected model %q, got %q", cfg.LLMProvider, tt.want, cfg.LLMModel)
			}
		})
	}
}

func TestNormalizeProviderAliases(t *testing.T) {
	tests := map[string]string{
		"Claude":      "anthropic",
		"google":      "gemini",
		"placeholder": "none",
		" openai ":    "openai",
		"unknown":     "gemini",
	}
	for raw, want := range tests {
		if got := NormalizeProvider(raw); got != want {
			t.Fatalf("NormalizeProvider(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("llm_modle = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Defaults()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	cfg := Config{
		LLMProvider:     "anthropic",
		GoogleAPIKey:    "g",
		OpenAIAPIKey:    "o",
		AnthropicAPIKey: "a",
	}
	if got := cfg.APIKey(); got != "a" {
		t.Fatalf("expected anthropic key, got %q", got)
	}
	cfg.LLMProvider = "gemini"
	if got := cfg.APIKey(); got != "g" {
		t.Fatalf("expected google key, got %q", got)
	}
}
