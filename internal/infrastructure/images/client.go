// Package images talks to the featured-image search/generation service.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

const maxImageBytes = 20 << 20

// Client posts image requests to the service endpoint and downloads the result.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ImageService = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.ImageConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type imageResponse struct {
	Image struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
		AltText  string `json:"altText"`
		Status   string `json:"status"`
	} `json:"image"`
	SearchResults json.RawMessage `json:"searchResults"`
	Metadata      struct {
		WasGenerated bool   `json:"wasGenerated"`
		Provider     string `json:"provider"`
	} `json:"metadata"`
}

// RequestImage asks the service to find or generate an image for the article.
func (c *Client) RequestImage(ctx context.Context, req ports.ImageRequest) (ports.ImageResult, error) {
	var resp imageResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return ports.ImageResult{}, err
	}
	return ports.ImageResult{
		URL:          resp.Image.URL,
		Filename:     resp.Image.Filename,
		AltText:      resp.Image.AltText,
		Status:       resp.Image.Status,
		WasGenerated: resp.Metadata.WasGenerated,
		Provider:     resp.Metadata.Provider,
	}, nil
}

// Download fetches the image bytes. The content type falls back to sniffing.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("download image: empty body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (c *Client) post(ctx context.Context, payload any, v any) error {
	if c.endpoint == "" {
		return fmt.Errorf("image service endpoint is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
