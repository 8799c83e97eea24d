package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
	userAgent    = "ArticlesPublisher/1.0"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls an arXiv listing page and turns entries into feed items.
type ArxivScanner struct {
	client   *http.Client
	pageSize int
}

var _ scanner.Scanner = (*ArxivScanner)(nil)

// NewArxivScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivScanner(client *http.Client) *ArxivScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivScanner{client: client, pageSize: 200}
}

func (a *ArxivScanner) Kind() domain.SourceKind {
	return domain.SourceArxiv
}

// Scan pages through the listing until it reaches entries older than the
// previous fetch day. A first fetch reads a single page.
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	var cutoff time.Time
	if req.Since != nil {
		cutoff = req.Since.UTC().Truncate(24 * time.Hour)
	}

	results := make([]domain.FeedItem, 0)
	seen := map[string]struct{}{}
	skip := 0
	for {
		pageURL, err := buildPageURL(req.URL, skip, a.pageSize)
		if err != nil {
			return nil, err
		}

		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		pageItems, shouldContinue := a.extractItems(doc, cutoff)
		for _, item := range pageItems {
			if _, ok := seen[item.GUID]; ok {
				continue
			}
			seen[item.GUID] = struct{}{}
			item.SourceID = req.SourceID
			results = append(results, item)
			if req.MaxItems > 0 && len(results) >= req.MaxItems {
				return results, nil
			}
		}

		if !shouldContinue || cutoff.IsZero() {
			break
		}
		skip += a.pageSize
	}

	return results, nil
}

func (a *ArxivScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivScanner) extractItems(doc *goquery.Document, cutoff time.Time) ([]domain.FeedItem, bool) {
	var (
		collected    []domain.FeedItem
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		item, ok := parseEntry(dt, dd)
		if !ok {
			return true
		}

		if item.PublishedAt != nil && item.PublishedAt.Before(cutoff) {
			continueScan = false
			return false
		}
		collected = append(collected, item)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

// parseEntry reads one dt/dd pair. Entries without an abs link are skipped.
func parseEntry(dt, dd *goquery.Selection) (domain.FeedItem, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, exists := link.Attr("href")
	if !exists {
		return domain.FeedItem{}, false
	}

	id := strings.TrimSpace(link.Text())
	if id == "" {
		id = "arXiv:" + strings.TrimPrefix(href, "/abs/")
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimSpace(strings.TrimPrefix(summary, "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	item := domain.FeedItem{
		GUID:    id,
		URL:     href,
		Title:   title,
		Content: summary,
	}
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			item.PublishedAt = &parsed
		}
	}

	return item, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
