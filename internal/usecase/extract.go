package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ArticlesPublisher/internal/jsonrepair"
)

// GeneratedSchemaVersion is the canonical generation response shape.
const GeneratedSchemaVersion = 1

var errIncompleteGeneration = errors.New("generation response is missing title or content")

// GeneratedArticle is the canonical (version 1) generation response.
type GeneratedArticle struct {
	SchemaVersion   int      `json:"schema_version,omitempty"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Slug            string   `json:"slug,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// legacyGeneratedArticle is the nested shape older prompts produce.
type legacyGeneratedArticle struct {
	Article struct {
		BasicData struct {
			Title string `json:"title"`
			Slug  string `json:"slug"`
		} `json:"basic_data"`
		Content     json.RawMessage `json:"content"`
		SEOCritical struct {
			MetaDescription string   `json:"meta_description"`
			Slug            string   `json:"slug"`
			Tags            []string `json:"tags"`
		} `json:"seo_critical"`
	} `json:"article"`
}

// ParseGeneratedArticle repairs raw and extracts a version 1 article from it.
func ParseGeneratedArticle(raw string) (GeneratedArticle, error) {
	repaired, err := jsonrepair.Repair(raw)
	if err != nil {
		return GeneratedArticle{}, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(repaired), &probe); err != nil {
		return GeneratedArticle{}, fmt.Errorf("decode generation response: %w", err)
	}

	var out GeneratedArticle
	if _, nested := probe["article"]; nested && probe["title"] == nil {
		out, err = normalizeLegacy([]byte(repaired))
	} else {
		err = json.Unmarshal([]byte(repaired), &out)
	}
	if err != nil {
		return GeneratedArticle{}, fmt.Errorf("decode generation response: %w", err)
	}

	if out.SchemaVersion > GeneratedSchemaVersion {
		return GeneratedArticle{}, fmt.Errorf("generation response schema version %d is not supported", out.SchemaVersion)
	}
	out.SchemaVersion = GeneratedSchemaVersion
	out.Title = strings.TrimSpace(out.Title)
	out.Content = strings.TrimSpace(out.Content)
	if out.Title == "" || out.Content == "" {
		return GeneratedArticle{}, errIncompleteGeneration
	}
	out.Tags = cleanTags(out.Tags)
	return out, nil
}

func normalizeLegacy(data []byte) (GeneratedArticle, error) {
	var legacy legacyGeneratedArticle
	if err := json.Unmarshal(data, &legacy); err != nil {
		return GeneratedArticle{}, err
	}

	slug := legacy.Article.SEOCritical.Slug
	if slug == "" {
		slug = legacy.Article.BasicData.Slug
	}

	return GeneratedArticle{
		Title:           legacy.Article.BasicData.Title,
		Content:         legacyContent(legacy.Article.Content),
		Slug:            slug,
		MetaDescription: legacy.Article.SEOCritical.MetaDescription,
		Tags:            legacy.Article.SEOCritical.Tags,
	}, nil
}

// legacyContent accepts either a string or an object holding the body.
func legacyContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"html", "body", "main_content", "text"} {
		if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
