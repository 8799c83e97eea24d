package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

// GeminiClient generates articles with Google Gemini.
type GeminiClient struct {
	client       *genai.Client
	model        string
	systemPrompt string
	maxTokens    int32
}

var _ ports.Generator = (*GeminiClient)(nil)

// NewGeminiClient connects to the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg config.GenerationConfig) (*GeminiClient, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	maxTokens := int32(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiClient{
		client:       client,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokens,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(c.systemPrompt), genai.RoleUser),
		MaxOutputTokens:   c.maxTokens,
		ResponseMIMEType:  "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt(req)), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
