package backfill

import (
	"context"
	"errors"
	"testing"

	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/extractor"
	"github.com/tkilaker/dronewire/internal/logging"
)

type fakeStore struct {
	articles []*database.Article
	images   map[int64]string
	gotLimit int
}

func (f *fakeStore) ListArticlesMissingImage(_ context.Context, limit int) ([]*database.Article, error) {
	f.gotLimit = limit
	return f.articles, nil
}

func (f *fakeStore) UpdateArticleImage(_ context.Context, id int64, imageURL string) error {
	f.images[id] = imageURL
	return nil
}

type MockExtractor struct {
	ExtractFunc func(ctx context.Context, pageURL string) (*extractor.Result, error)
}

func (m *MockExtractor) Extract(ctx context.Context, pageURL string) (*extractor.Result, error) {
	return m.ExtractFunc(ctx, pageURL)
}

func TestJobRun(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		articles: []*database.Article{
			{ID: 1, SourceURL: "https://e.com/with-image"},
			{ID: 2, SourceURL: "https://e.com/no-image"},
			{ID: 3, SourceURL: "https://e.com/broken"},
		},
		images: map[int64]string{},
	}
	ext := &MockExtractor{ExtractFunc: func(_ context.Context, pageURL string) (*extractor.Result, error) {
		switch pageURL {
		case "https://e.com/with-image":
			return &extractor.Result{ImageURL: "https://e.com/hero.jpg"}, nil
		case "https://e.com/no-image":
			return &extractor.Result{}, nil
		}
		return nil, errors.New("timeout")
	}}

	res, err := New(store, ext, -1, logging.Discard()).Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if store.gotLimit != defaultLimit {
		t.Errorf("limit = %d", store.gotLimit)
	}
	if res.Checked != 3 || res.Updated != 1 || res.Failed != 1 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if store.images[1] != "https://e.com/hero.jpg" {
		t.Fatalf("images = %v", store.images)
	}
}

func TestJobRunHonorsCancellation(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		articles: []*database.Article{{ID: 1}, {ID: 2}},
		images:   map[int64]string{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	ext := &MockExtractor{ExtractFunc: func(context.Context, string) (*extractor.Result, error) {
		cancel()
		return &extractor.Result{}, nil
	}}

	res, err := New(store, ext, -1, logging.Discard()).Run(ctx, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Checked != 1 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res)
	}
}
