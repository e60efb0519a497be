package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	DB          Pinger
	LLMProvider string
}

// NewService constructs a new health service. db may be nil when running on memory repositories.
func NewService(db Pinger, llmProvider string) *Service {
	return &Service{DB: db, LLMProvider: llmProvider}
}

// Status returns the health payload and whether every dependency is reachable.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	payload := map[string]any{"ok": true}
	if s == nil {
		return payload, true
	}
	if s.LLMProvider != "" {
		payload["llmProvider"] = s.LLMProvider
	}

	if s.DB == nil {
		payload["database"] = "memory"
		return payload, true
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		payload["ok"] = false
		payload["database"] = "down"
		return payload, false
	}
	payload["database"] = "up"
	return payload, true
}
