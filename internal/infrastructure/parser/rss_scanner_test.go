package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/scanner"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <link>%[1]s</link>
  <description>test feed</description>
  <item>
    <title>First post</title>
    <link>%[1]s/posts/1</link>
    <guid>post-1</guid>
    <description>Short summary</description>
    <pubDate>Sat, 08 Nov 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Second post</title>
    <link>%[1]s/posts/2</link>
    <guid>post-2</guid>
  </item>
</channel>
</rss>`

const articlePage = `<html><head><title>Second post</title></head><body>
<article><h1>Second post</h1>
<p>The second post body is long enough for readability to keep it as the main content of this page.</p>
<p>It carries a further paragraph so the extractor has something substantial to score.</p>
</article></body></html>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(fmt.Sprintf(feedTemplate, server.URL)))
		case "/posts/2":
			_, _ = w.Write([]byte(articlePage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRSSScannerMapsItems(t *testing.T) {
	server := newFeedServer(t)

	items, err := NewRSSScanner(server.Client(), false, nil).Scan(context.Background(), scanner.Request{
		SourceID: "src-1",
		URL:      server.URL + "/feed.xml",
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "post-1", items[0].GUID)
	assert.Equal(t, server.URL+"/posts/1", items[0].URL)
	assert.Equal(t, "First post", items[0].Title)
	assert.Equal(t, "Short summary", items[0].Content)
	assert.Equal(t, "src-1", items[0].SourceID)
	require.NotNil(t, items[0].PublishedAt)
	assert.Empty(t, items[1].Content)
}

func TestRSSScannerFillsEmptyContent(t *testing.T) {
	server := newFeedServer(t)

	items, err := NewRSSScanner(server.Client(), true, nil).Scan(context.Background(), scanner.Request{
		URL:      server.URL + "/feed.xml",
		MaxItems: 5,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Contains(t, items[1].Content, "second post body")
}

func TestRSSScannerLimitsItems(t *testing.T) {
	server := newFeedServer(t)

	items, err := NewRSSScanner(server.Client(), false, nil).Scan(context.Background(), scanner.Request{
		URL:      server.URL + "/feed.xml",
		MaxItems: 1,
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRSSScannerReportsHTTPFailure(t *testing.T) {
	server := newFeedServer(t)

	_, err := NewRSSScanner(server.Client(), false, nil).Scan(context.Background(), scanner.Request{URL: server.URL + "/missing"})
	assert.ErrorContains(t, err, "404")
}
