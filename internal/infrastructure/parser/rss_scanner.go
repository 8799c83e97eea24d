package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/go-shiori/go-readability"
	"github.com/samber/lo"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/scanner"
)

const maxBodyBytes = 8 << 20

// RSSScanner reads RSS and Atom feeds. Items that arrive without a body get
// the readable text of the linked page instead.
type RSSScanner struct {
	client        *http.Client
	logger        *slog.Logger
	fetchArticles bool
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client. With fetchArticles set, empty items are
// completed through go-readability.
func NewRSSScanner(client *http.Client, fetchArticles bool, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RSSScanner{client: client, logger: logger, fetchArticles: fetchArticles}
}

func (s *RSSScanner) Kind() domain.SourceKind {
	return domain.SourceRSS
}

func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	body, err := s.get(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	feed, err := rss.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.URL, err)
	}

	entries := feed.Items
	if req.MaxItems > 0 && len(entries) > req.MaxItems {
		entries = entries[:req.MaxItems]
	}

	items := lo.Map(entries, func(entry *rss.Item, _ int) domain.FeedItem {
		item := domain.FeedItem{
			SourceID: req.SourceID,
			GUID:     strings.TrimSpace(entry.ID),
			URL:      strings.TrimSpace(entry.Link),
			Title:    strings.TrimSpace(entry.Title),
			Content:  lo.CoalesceOrEmpty(strings.TrimSpace(entry.Content), strings.TrimSpace(entry.Summary)),
		}
		if !entry.Date.IsZero() {
			published := entry.Date.UTC()
			item.PublishedAt = &published
		}
		return item
	})

	if s.fetchArticles {
		for i := range items {
			if items[i].Content != "" || items[i].URL == "" {
				continue
			}
			text, err := s.readable(ctx, items[i].URL)
			if err != nil {
				s.logger.Warn("readability fallback failed", "url", items[i].URL, "error", err)
				continue
			}
			items[i].Content = text
		}
	}

	return items, nil
}

func (s *RSSScanner) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return body, nil
}

func (s *RSSScanner) readable(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	body, err := s.get(ctx, link)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract readable text: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
