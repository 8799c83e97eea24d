package llm

import (
	"context"
	"fmt"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

// New picks the generation provider named in configuration.
func New(ctx context.Context, cfg config.GenerationConfig) (ports.Generator, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg), nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
