package llm

import (
	"context"
	"errors"
	"time"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Client abstracts LLM providers. Complete sends the messages in a single
// blocking call and returns the raw text of the reply.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options carries the generation settings shared by every provider.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// BaseURL overrides the provider endpoint. Empty means the provider default.
	BaseURL string
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is used when no provider credential is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, messages []Message) (string, error) {
	_ = ctx
	_ = messages
	return "", ErrNotImplemented
}

// SplitSystem separates system messages from the conversation turns, for
// providers that take the system instruction as a separate field.
func SplitSystem(messages []Message) (system string, turns []Message) {
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
