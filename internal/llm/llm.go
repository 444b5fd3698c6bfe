// Package llm wraps the hosted model SDKs behind a single completion call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andrewy1n/platypus-academy/internal/config"
)

// ErrEmptyResponse is returned when a provider answers with no text
var ErrEmptyResponse = errors.New("llm: empty response")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message in a conversation
type Turn struct {
	Role Role
	Text string
}

// Request is a single completion. History precedes Prompt.
type Request struct {
	Model   string
	System  string
	Prompt  string
	History []Turn
	// JSON asks the provider for a JSON-only reply where supported
	JSON bool
}

// Completer returns the text of one model reply
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}

// New builds the client for the configured provider. It returns nil when AI
// is disabled so callers can fall back to their mock paths.
func New(ctx context.Context, cfg config.AIConfig) (Completer, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.APIKey())
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.APIKey(), cfg.BaseURL, cfg.MaxTokens), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey(), cfg.BaseURL, cfg.MaxTokens), nil
	}
	return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
}

// StripCodeFences removes a surrounding markdown code fence
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
