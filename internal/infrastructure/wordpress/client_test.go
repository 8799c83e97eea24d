package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/config"
	"ArticlesPublisher/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.WordPressConfig{BaseURL: server.URL, Username: "editor", AppPassword: "app pass"}, nil)
}

func TestCreatePostResolvesTerms(t *testing.T) {
	var created atomic.Int32
	var gotPost postPayload

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "editor", user)
		assert.Equal(t, "app pass", pass)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/wp/v2/categories":
			_, _ = w.Write([]byte(`[{"id": 7, "name": "Tech &amp; Science"}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/wp/v2/tags":
			_, _ = w.Write([]byte(`[]`))
		case r.Method == http.MethodPost && r.URL.Path == "/wp/v2/tags":
			created.Add(1)
			_, _ = w.Write([]byte(`{"id": 42, "name": "go"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/wp/v2/posts":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPost))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 101, "link": "https://blog.example.com/go-news"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	post := ports.Post{
		Title:         "Go news",
		Content:       "<p>body</p>",
		Slug:          "go-news",
		Categories:    []string{"Tech & Science"},
		Tags:          []string{"go", "Go"},
		FeaturedMedia: 9,
	}
	res, err := client.CreatePost(context.Background(), post)
	require.NoError(t, err)

	assert.Equal(t, int64(101), res.ID)
	assert.Equal(t, "https://blog.example.com/go-news", res.URL)
	assert.Equal(t, []int64{7}, gotPost.Categories)
	assert.Equal(t, []int64{42}, gotPost.Tags)
	assert.Equal(t, "publish", gotPost.Status)
	assert.Equal(t, int64(9), gotPost.FeaturedMedia)
	assert.Equal(t, int32(1), created.Load(), "case-insensitive names share one term")
}

func TestCreatePostAuthFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"rest_not_logged_in","message":"You are not currently logged in.","data":{"status":401}}`))
	})

	_, err := client.CreatePost(context.Background(), ports.Post{Title: "t", Content: "c"})
	require.Error(t, err)

	var wpErr *Error
	require.True(t, errors.As(err, &wpErr))
	assert.Equal(t, KindAuth, wpErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, wpErr.StatusCode)
	assert.Equal(t, "rest_not_logged_in", wpErr.Code)
}

func TestHTMLResponseIsTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = w.Write([]byte(`<html><head><title>Maintenance mode</title></head><body></body></html>`))
	})

	_, err := client.CreatePost(context.Background(), ports.Post{Title: "t"})
	var wpErr *Error
	require.True(t, errors.As(err, &wpErr))
	assert.Equal(t, KindHTML, wpErr.Kind)
	assert.Contains(t, wpErr.Message, "Maintenance mode")
}

func TestStatusErrorIsTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"db_error","message":"boom"}`))
	})

	_, err := client.CreatePost(context.Background(), ports.Post{Title: "t"})
	var wpErr *Error
	require.True(t, errors.As(err, &wpErr))
	assert.Equal(t, KindStatus, wpErr.Kind)
	assert.Equal(t, "boom", wpErr.Message)
}

func TestTransportErrorIsTyped(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := NewClient(config.WordPressConfig{BaseURL: server.URL}, nil)

	_, err := client.CreatePost(context.Background(), ports.Post{Title: "t"})
	var wpErr *Error
	require.True(t, errors.As(err, &wpErr))
	assert.Equal(t, KindTransport, wpErr.Kind)
}

func TestCreateTermRecoversExisting(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"term_exists","message":"exists","data":{"status":400,"term_id":5}}`))
		}
	})

	ids, err := client.resolveTerms(context.Background(), taxonomyCategories, []string{"General"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
}

func TestUploadMediaSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp/v2/media", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "A gopher", r.FormValue("alt_text"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "gopher.jpg", header.Filename)
		assert.Equal(t, "jpegbytes", string(data))
		assert.True(t, strings.HasPrefix(header.Header.Get("Content-Type"), "image/jpeg"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 9, "source_url": "https://blog.example.com/uploads/gopher.jpg"}`))
	})

	media, err := client.UploadMedia(context.Background(), ports.MediaUpload{
		Filename:    "gopher.jpg",
		ContentType: "image/jpeg",
		AltText:     "A gopher",
		Data:        []byte("jpegbytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), media.ID)
	assert.Equal(t, "https://blog.example.com/uploads/gopher.jpg", media.URL)
}
