package wordpress

import (
	"context"
	"fmt"
	"net/http"

	"ArticlesPublisher/internal/ports"
)

type postPayload struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Excerpt       string            `json:"excerpt,omitempty"`
	Slug          string            `json:"slug,omitempty"`
	Status        string            `json:"status"`
	Categories    []int64           `json:"categories,omitempty"`
	Tags          []int64           `json:"tags,omitempty"`
	FeaturedMedia int64             `json:"featured_media,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

type postResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// CreatePost resolves category and tag names to term ids and creates the post.
func (c *Client) CreatePost(ctx context.Context, post ports.Post) (ports.PostResult, error) {
	categories, err := c.resolveTerms(ctx, taxonomyCategories, post.Categories)
	if err != nil {
		return ports.PostResult{}, fmt.Errorf("resolve categories: %w", err)
	}
	tags, err := c.resolveTerms(ctx, taxonomyTags, post.Tags)
	if err != nil {
		return ports.PostResult{}, fmt.Errorf("resolve tags: %w", err)
	}

	status := post.Status
	if status == "" {
		status = "publish"
	}

	req, err := jsonRequest(http.MethodPost, "/wp/v2/posts", postPayload{
		Title:         post.Title,
		Content:       post.Content,
		Excerpt:       post.Excerpt,
		Slug:          post.Slug,
		Status:        status,
		Categories:    categories,
		Tags:          tags,
		FeaturedMedia: post.FeaturedMedia,
		Meta:          post.Meta,
	})
	if err != nil {
		return ports.PostResult{}, err
	}

	var out postResponse
	if err := c.do(ctx, req, &out); err != nil {
		return ports.PostResult{}, fmt.Errorf("create post: %w", err)
	}
	return ports.PostResult{ID: out.ID, URL: out.Link}, nil
}
