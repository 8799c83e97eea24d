package wordpress

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
)

const (
	taxonomyCategories = "categories"
	taxonomyTags       = "tags"
)

type term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// resolveTerms maps names to term ids, creating missing terms. Ids are cached per client.
func (c *Client) resolveTerms(ctx context.Context, taxonomy string, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	seen := map[int64]struct{}{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := c.termID(ctx, taxonomy, name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) termID(ctx context.Context, taxonomy, name string) (int64, error) {
	key := taxonomy + "/" + strings.ToLower(name)

	c.mu.Lock()
	id, ok := c.terms[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := c.findTerm(ctx, taxonomy, name)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		if id, err = c.createTerm(ctx, taxonomy, name); err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	c.terms[key] = id
	c.mu.Unlock()
	return id, nil
}

func (c *Client) findTerm(ctx context.Context, taxonomy, name string) (int64, error) {
	query := url.Values{"search": {name}, "per_page": {"100"}}
	var found []term
	err := c.do(ctx, request{method: http.MethodGet, path: "/wp/v2/" + taxonomy + "?" + query.Encode()}, &found)
	if err != nil {
		return 0, fmt.Errorf("search %s %q: %w", taxonomy, name, err)
	}
	for _, t := range found {
		if strings.EqualFold(html.UnescapeString(t.Name), name) {
			return t.ID, nil
		}
	}
	return 0, nil
}

func (c *Client) createTerm(ctx context.Context, taxonomy, name string) (int64, error) {
	req, err := jsonRequest(http.MethodPost, "/wp/v2/"+taxonomy, map[string]string{"name": name})
	if err != nil {
		return 0, err
	}
	var created term
	err = c.do(ctx, req, &created)
	if err == nil {
		return created.ID, nil
	}

	// A concurrent writer may have created it; WordPress reports the existing id.
	var wpErr *Error
	if errors.As(err, &wpErr) && wpErr.Code == "term_exists" && wpErr.termID != 0 {
		return wpErr.termID, nil
	}
	return 0, fmt.Errorf("create %s %q: %w", taxonomy, name, err)
}
