package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

var sampleRequest = ports.GenerationRequest{
	Topic:           "Go 1.25 released",
	SourceContent:   "The Go team announced a release.",
	SourceURL:       "https://go.dev/blog/go1.25",
	TargetWordCount: 600,
	Tone:            "friendly",
	Keywords:        []string{"go", "release"},
}

func TestUserPromptCarriesRequestFields(t *testing.T) {
	prompt := userPrompt(sampleRequest)

	assert.Contains(t, prompt, "Topic: Go 1.25 released")
	assert.Contains(t, prompt, "about 600 words")
	assert.Contains(t, prompt, "Tone: friendly")
	assert.Contains(t, prompt, "go, release")
	assert.Contains(t, prompt, "The Go team announced a release.")
	assert.NotContains(t, prompt, "Style:")
}

func TestUserPromptDefaultsWordCount(t *testing.T) {
	assert.Contains(t, userPrompt(ports.GenerationRequest{Topic: "x"}), "about 800 words")
}

func TestSystemPromptAsksForCanonicalShape(t *testing.T) {
	assert.Contains(t, systemPrompt(""), `"schema_version": 1`)
	assert.Equal(t, "custom", systemPrompt(" custom "))
}

func TestOpenAIClientGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"T\""},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.GenerationConfig{Endpoint: server.URL, Model: "gpt-test", APIKey: "sk-test", MaxTokens: 100})
	raw, err := client.Generate(context.Background(), sampleRequest)
	require.NoError(t, err)

	assert.Equal(t, `{"title":"T"`, raw, "truncated output is passed through for repair")
	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestOpenAIClientSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAIClient(config.GenerationConfig{Endpoint: server.URL, Model: "m", APIKey: "k"})
	_, err := client.Generate(context.Background(), sampleRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIClientRequiresConfiguration(t *testing.T) {
	_, err := NewOpenAIClient(config.GenerationConfig{}).Generate(context.Background(), sampleRequest)
	assert.ErrorContains(t, err, "misconfigured")
}

func TestAnthropicClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "{\"title\":\"A\",\"content\":\"B\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(config.GenerationConfig{Endpoint: server.URL, Model: "claude-test", APIKey: "key"})
	raw, err := client.Generate(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"A","content":"B"}`, raw)
}

func TestNewPicksProvider(t *testing.T) {
	gen, err := New(context.Background(), config.GenerationConfig{Provider: "anthropic", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, gen)

	gen, err = New(context.Background(), config.GenerationConfig{Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, gen)

	_, err = New(context.Background(), config.GenerationConfig{Provider: "mystery"})
	assert.ErrorContains(t, err, "unknown generation provider")
}
