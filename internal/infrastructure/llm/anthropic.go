package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

const defaultMaxTokens = 4096

// AnthropicClient generates articles through the Messages API.
type AnthropicClient struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	maxTokens    int64
}

var _ ports.Generator = (*AnthropicClient)(nil)

// NewAnthropicClient builds the SDK client; a configured endpoint replaces the base URL.
func NewAnthropicClient(cfg config.GenerationConfig) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokens,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt(c.systemPrompt)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text")
	}
	return text.String(), nil
}
