// Command sitegen turns a resume file on disk into a portfolio website.
//
//	go run ./cmd/sitegen -resume ./resume.pdf -out ./site
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"portfolio-backend/internal/extract"
	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/llm/provider"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/site"
	"portfolio-backend/internal/sitegen"
)

const previewRunes = 500

type clientFactory func(ctx context.Context, cfg config.Config) (llm.Client, provider.Info, error)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, provider.New); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, newClient clientFactory) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("sitegen", flag.ContinueOnError)
	resumePath := fs.String("resume", "", "Path to resume file (pdf or docx)")
	outDir := fs.String("out", ".", "Directory to write the website files to")
	providerName := fs.String("provider", cfg.LLMProvider, "LLM provider (gemini, openai, anthropic)")
	model := fs.String("model", "", "LLM model (default: LLM_MODEL, or the provider's default model)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*resumePath) == "" {
		return errors.New("resume path is required")
	}
	format, err := extract.FormatFromFileName(*resumePath)
	if err != nil {
		return errors.New("Unsupported file format.")
	}

	data, err := os.ReadFile(*resumePath)
	if err != nil {
		return fmt.Errorf("read resume: %w", err)
	}
	text, err := extract.ExtractTextFromBytes(ctx, data, format)
	if err != nil {
		return fmt.Errorf("extract resume text: %w", err)
	}
	fmt.Fprintf(stdout, "Extracted resume preview (%s):\n%s\n\n", filepath.Base(*resumePath), preview(text))

	cfg = withLLMOverrides(cfg, *providerName, *model)
	client, info, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := sitegen.New(client, info.Provider, info.Model).Generate(ctx, text)
	if err != nil {
		return err
	}
	parsed, err := site.Parse(result.Raw)
	if err != nil {
		return err
	}
	archivePath, err := site.WriteDir(*outDir, parsed)
	if err != nil {
		return err
	}

	for _, doc := range parsed.Documents() {
		fmt.Fprintf(stdout, "wrote %s\n", filepath.Join(*outDir, doc.Name))
	}
	fmt.Fprintf(stdout, "wrote %s\n", archivePath)
	return nil
}

// withLLMOverrides applies the -provider and -model flags. Switching provider
// without -model selects that provider's default model.
func withLLMOverrides(cfg config.Config, providerName, model string) config.Config {
	providerName = config.NormalizeProvider(providerName)
	if providerName != cfg.LLMProvider {
		cfg.LLMModel = config.DefaultModel(providerName)
	}
	cfg.LLMProvider = providerName
	if m := strings.TrimSpace(model); m != "" {
		cfg.LLMModel = m
	}
	return cfg
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "..."
}
