// Package llm holds the article generation providers.
package llm

import (
	"fmt"
	"strings"

	"ArticlesPublisher/internal/ports"
)

const (
	defaultWordCount = 800
	maxSourceRunes   = 12000
)

const defaultSystemPrompt = `You are a staff writer for a publication. You turn source material into an original article.
Reply with a single JSON object and nothing else, using exactly this shape:
{"schema_version": 1, "title": "...", "content": "markdown body", "slug": "kebab-case-slug", "meta_description": "at most 160 characters", "tags": ["..."]}`

func systemPrompt(custom string) string {
	if custom = strings.TrimSpace(custom); custom != "" {
		return custom
	}
	return defaultSystemPrompt
}

// userPrompt renders the request as the user turn shared by all providers.
func userPrompt(req ports.GenerationRequest) string {
	var b strings.Builder

	words := req.TargetWordCount
	if words <= 0 {
		words = defaultWordCount
	}

	fmt.Fprintf(&b, "Topic: %s\n", strings.TrimSpace(req.Topic))
	fmt.Fprintf(&b, "Target length: about %d words\n", words)
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if req.Style != "" {
		fmt.Fprintf(&b, "Style: %s\n", req.Style)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Work in these keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	if req.SourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", req.SourceURL)
	}

	source := []rune(strings.TrimSpace(req.SourceContent))
	if len(source) > maxSourceRunes {
		source = source[:maxSourceRunes]
	}
	if len(source) > 0 {
		b.WriteString("\nSource material:\n")
		b.WriteString(string(source))
		b.WriteString("\n")
	}
	return b.String()
}
