// Package wordpress publishes posts and media through the WordPress REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

const maxResponseBytes = 4 << 20

// Client is a rate-limited WordPress REST client using application passwords.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.Mutex
	terms map[string]int64
}

var _ ports.CMS = (*Client)(nil)

// NewClient builds a client for the wp-json root in cfg.BaseURL.
func NewClient(cfg config.WordPressConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.AppPassword,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.With("component", "wordpress"),
		terms:      map[string]int64{},
	}
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("marshal payload: %w", err)
	}
	return request{method: method, path: path, body: bytes.NewReader(body), contentType: "application/json"}, nil
}

// do sends r and decodes a JSON 2xx answer into out. Every failure is an *Error.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if c.baseURL == "" {
		return &Error{Kind: KindTransport, Endpoint: r.path, Message: "base url is not configured"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindTransport, Endpoint: r.path, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: r.path, Err: err}
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	c.logger.Debug("wordpress request", "method", r.method, "path", r.path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: r.path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Endpoint: r.path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || looksLikeHTML(resp.Header.Get("Content-Type"), body) {
		return classify(r.path, resp, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Endpoint: r.path, Message: "decode response", Err: err}
	}
	return nil
}
