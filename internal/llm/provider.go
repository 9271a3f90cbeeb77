package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/clobrano/briefbot/internal/config"
)

// Provider sends a single-turn prompt to a chat model and returns its reply.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the provider named in cfg.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "claude":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is required for claude")
		}
		return NewClaudeProvider(cfg.AnthropicKey, cfg.Model), nil
	case "gemini":
		if cfg.GoogleKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for gemini")
		}
		return NewGeminiProvider(ctx, cfg.GoogleKey, cfg.GeminiBaseURL, cfg.Model)
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for openai")
		}
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (use 'claude', 'gemini' or 'openai')", cfg.Provider)
	}
}
