package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
	"ArticlesPublisher/internal/infrastructure/storage/badgerstore"
	"ArticlesPublisher/internal/ports"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock advances one second per Now call and hands out sequential ids.
type testClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	slept  []time.Duration
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Clock() Clock {
	return Clock{
		Now: func() time.Time {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.now = c.now.Add(time.Second)
			return c.now
		},
		NewID: func() string {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.nextID++
			return fmt.Sprintf("id-%03d", c.nextID)
		},
		Sleep: func(ctx context.Context, d time.Duration) error {
			c.mu.Lock()
			c.slept = append(c.slept, d)
			c.mu.Unlock()
			return ctx.Err()
		},
	}
}

func newTestStore(t *testing.T) (ports.Store, *badgerstore.Store) {
	t.Helper()
	raw, err := badgerstore.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return raw.Ports(), raw
}

func saveSource(t *testing.T, store ports.Store, source domain.Source) domain.Source {
	t.Helper()
	if source.Kind == "" {
		source.Kind = domain.SourceRSS
	}
	require.NoError(t, store.Sources.Save(context.Background(), &source))
	return source
}

func seedItems(t *testing.T, store ports.Store, items ...domain.FeedItem) {
	t.Helper()
	repo, ok := store.Items.(*badgerstore.FeedItemRepository)
	require.True(t, ok)
	for _, item := range items {
		require.NoError(t, repo.InsertUnchecked(context.Background(), item))
	}
}

type fakeItemSource struct {
	items map[string][]domain.FeedItem
	err   error
	calls int
}

func (f *fakeItemSource) Fetch(_ context.Context, source domain.Source) ([]domain.FeedItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.FeedItem(nil), f.items[source.ID]...), nil
}

type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []ports.GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req ports.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return `{"title":"Generated","content":"Body"}`, nil
	}
	out := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return out, nil
}

type fakeImageService struct {
	result      ports.ImageResult
	err         error
	downloadErr error
	downloads   []string
}

func (f *fakeImageService) RequestImage(_ context.Context, _ ports.ImageRequest) (ports.ImageResult, error) {
	return f.result, f.err
}

func (f *fakeImageService) Download(_ context.Context, url string) ([]byte, string, error) {
	f.downloads = append(f.downloads, url)
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return []byte("jpeg-bytes"), "image/jpeg", nil
}

type fakeCMS struct {
	mu        sync.Mutex
	posts     []ports.Post
	uploads   []ports.MediaUpload
	postErr   error
	uploadErr error
	nextID    int64
	// onPost runs before a post is accepted.
	onPost func()
}

func (f *fakeCMS) UploadMedia(_ context.Context, upload ports.MediaUpload) (ports.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return ports.Media{}, f.uploadErr
	}
	f.uploads = append(f.uploads, upload)
	return ports.Media{ID: 900 + int64(len(f.uploads)), URL: "https://blog.example/media/" + upload.Filename}, nil
}

func (f *fakeCMS) CreatePost(_ context.Context, post ports.Post) (ports.PostResult, error) {
	if f.onPost != nil {
		f.onPost()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return ports.PostResult{}, f.postErr
	}
	f.posts = append(f.posts, post)
	f.nextID++
	return ports.PostResult{ID: 100 + f.nextID, URL: fmt.Sprintf("https://blog.example/?p=%d", 100+f.nextID)}, nil
}

type fakeEvents struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeEvents) Publish(_ context.Context, subject string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

type busyLocker struct{}

func (busyLocker) TryLock(context.Context, string) (func(), bool, error) {
	return nil, false, nil
}
