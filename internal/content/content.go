// Package content converts article bodies between the formats the pipeline
// exchanges: HTML from feeds, Markdown for prompts and model output, HTML for the CMS.
package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultExcerptWords matches WordPress' automatic excerpt length.
const DefaultExcerptWords = 55

var (
	htmlTagPattern    = regexp.MustCompile(`(?i)<(p|div|h[1-6]|ul|ol|li|br|strong|em|a|img|blockquote|table|section|article|figure)\b[^>]*>`)
	excessiveLines    = regexp.MustCompile(`\n{3,}`)
	outerFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// LooksLikeHTML reports whether s already carries block or inline HTML markup.
func LooksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// ToHTML renders Markdown to HTML; input that already is HTML is returned unchanged.
func ToHTML(body string) (string, error) {
	body = strings.TrimSpace(body)
	if m := outerFencePattern.FindStringSubmatch(body); len(m) > 1 {
		body = strings.TrimSpace(m[1])
	}
	if body == "" || LooksLikeHTML(body) {
		return body, nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ToMarkdown converts feed HTML into Markdown for prompts. Plain text passes through.
func ToMarkdown(body string) string {
	body = strings.TrimSpace(body)
	if !LooksLikeHTML(body) {
		return body
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(body)
	if err != nil {
		return PlainText(body)
	}
	return strings.TrimSpace(excessiveLines.ReplaceAllString(out, "\n\n"))
}

// PlainText strips markup and collapses whitespace.
func PlainText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.Join(strings.Fields(body), " ")
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Excerpt returns the first words of the text content of body.
func Excerpt(body string, words int) string {
	if words <= 0 {
		words = DefaultExcerptWords
	}
	fields := strings.Fields(PlainText(body))
	if len(fields) <= words {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:words], " ") + "…"
}

// FirstImage returns the src of the first <img> in body, if any.
func FirstImage(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
