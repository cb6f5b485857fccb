package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/logging"
)

const threeItemFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Defense Wire</title>
  <link>https://example.com</link>
  <item>
    <title>Army fields new counter-drone interceptor</title>
    <link>https://example.com/news/interceptor</link>
    <description>&lt;p&gt;The service tested a new C-UAS system.&lt;/p&gt;</description>
    <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
    <media:content url="https://cdn.example.com/img/interceptor.jpg" medium="image"/>
  </item>
  <item>
    <title>Navy christens new destroyer</title>
    <link>https://example.com/news/destroyer</link>
    <description>A ceremony was held at the shipyard.</description>
  </item>
  <item>
    <title>Drone swarms reshape the front line</title>
    <link>https://example.com/news/already-stored</link>
    <description>Analysis of FPV tactics.</description>
  </item>
</channel>
</rss>`

type fakeStore struct {
	mu       sync.Mutex
	feeds    []*database.Feed
	articles map[string]*database.Article
	nextID   int64
}

func newFakeStore(feeds ...*database.Feed) *fakeStore {
	return &fakeStore{feeds: feeds, articles: map[string]*database.Article{}}
}

func (f *fakeStore) ListActiveFeeds(ctx context.Context) ([]*database.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*database.Feed
	for _, feed := range f.feeds {
		if feed.Active {
			out = append(out, feed)
		}
	}
	return out, nil
}

func (f *fakeStore) ArticleExists(ctx context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.articles[url]
	return ok, nil
}

func (f *fakeStore) CreateArticle(ctx context.Context, a *database.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[a.SourceURL]; ok {
		return database.ErrDuplicate
	}
	f.nextID++
	a.ID = f.nextID
	f.articles[a.SourceURL] = a
	return nil
}

func (f *fakeStore) RecordFeedSuccess(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, feed := range f.feeds {
		if feed.ID == id {
			feed.ErrorCount = 0
		}
	}
	return nil
}

func (f *fakeStore) RecordFeedError(ctx context.Context, id int64, msg string, threshold int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, feed := range f.feeds {
		if feed.ID == id {
			feed.ErrorCount++
			feed.LastError = &msg
			if feed.ErrorCount >= threshold {
				feed.Active = false
			}
			return !feed.Active, nil
		}
	}
	return false, database.ErrNotFound
}

func newTestScraper(store Store) *Scraper {
	return New(store, config.DefaultRules(), Options{Delay: -1, Logger: logging.Discard()})
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunAddsRelevantNewItemsOnly(t *testing.T) {
	srv := serveFeed(t, threeItemFeed)
	store := newFakeStore(&database.Feed{ID: 1, Name: "Defense Wire", URL: srv.URL, Category: "counter-uas", Active: true})
	store.articles["https://example.com/news/already-stored"] = &database.Article{}

	res, err := newTestScraper(store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.ArticlesAdded != 1 || res.ArticlesSkipped != 2 {
		t.Fatalf("expected added=1 skipped=2, got added=%d skipped=%d", res.ArticlesAdded, res.ArticlesSkipped)
	}
	if res.FeedsProcessed != 1 || res.FeedsFailed != 0 {
		t.Fatalf("unexpected feed counts: %+v", res)
	}

	a := store.articles["https://example.com/news/interceptor"]
	if a == nil {
		t.Fatal("relevant article was not stored")
	}
	if a.Status != database.StatusPendingAI {
		t.Errorf("expected pending status, got %s", a.Status)
	}
	if a.Category != database.CategoryCounterUAS {
		t.Errorf("expected feed category, got %s", a.Category)
	}
	if a.ImageURL == nil || *a.ImageURL != "https://cdn.example.com/img/interceptor.jpg" {
		t.Errorf("unexpected image: %v", a.ImageURL)
	}
	if a.Excerpt == nil || *a.Excerpt != "The service tested a new C-UAS system." {
		t.Errorf("expected stripped excerpt, got %v", a.Excerpt)
	}
	if a.PublishedAt.Year() != 2025 {
		t.Errorf("expected feed pub date, got %v", a.PublishedAt)
	}
}

func TestRunIsIdempotentAcrossRepeatedRuns(t *testing.T) {
	srv := serveFeed(t, threeItemFeed)
	store := newFakeStore(&database.Feed{ID: 1, Name: "Defense Wire", URL: srv.URL, Active: true})
	s := newTestScraper(store)

	first, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.ArticlesAdded != 2 {
		t.Fatalf("expected 2 relevant articles on first run, got %d", first.ArticlesAdded)
	}
	if second.ArticlesAdded != 0 {
		t.Fatalf("second run must not add duplicates, added %d", second.ArticlesAdded)
	}
	if len(store.articles) != 2 {
		t.Fatalf("expected 2 stored articles, got %d", len(store.articles))
	}
}

func TestRunDeactivatesFeedAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not a feed")
	}))
	defer srv.Close()

	feed := &database.Feed{ID: 7, Name: "Broken", URL: srv.URL, Active: true}
	store := newFakeStore(feed)
	s := newTestScraper(store)

	for i := 1; i <= database.FeedErrorThreshold; i++ {
		res, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.FeedsFailed != 1 {
			t.Fatalf("run %d: expected failure, got %+v", i, res)
		}
		wantDisabled := 0
		if i == database.FeedErrorThreshold {
			wantDisabled = 1
		}
		if res.FeedsDisabled != wantDisabled {
			t.Fatalf("run %d: expected %d disabled, got %d", i, wantDisabled, res.FeedsDisabled)
		}
	}

	if feed.Active {
		t.Fatal("feed should be inactive after 5 failures")
	}

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run after disable: %v", err)
	}
	if res.FeedsProcessed+res.FeedsFailed != 0 {
		t.Fatalf("inactive feed must be excluded, got %+v", res)
	}
}

func TestRunResetsErrorCountOnSuccess(t *testing.T) {
	srv := serveFeed(t, threeItemFeed)
	feed := &database.Feed{ID: 3, Name: "Flaky", URL: srv.URL, Active: true, ErrorCount: 4}
	store := newFakeStore(feed)

	if _, err := newTestScraper(store).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if feed.ErrorCount != 0 || !feed.Active {
		t.Fatalf("expected reset counter on success, got count=%d active=%v", feed.ErrorCount, feed.Active)
	}
}

type listErrStore struct{ fakeStore }

func (l *listErrStore) ListActiveFeeds(ctx context.Context) ([]*database.Feed, error) {
	return nil, errors.New("db down")
}

func TestRunReturnsSetupErrors(t *testing.T) {
	_, err := newTestScraper(&listErrStore{}).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestRunRejectsOverlappingRuns(t *testing.T) {
	s := newTestScraper(newFakeStore())
	s.Progress().Begin(1)

	if _, err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRelevanceFilter(t *testing.T) {
	t.Parallel()

	f := NewRelevanceFilter([]string{"Counter-UAS", "drone"})
	tests := []struct {
		text string
		want bool
	}{
		{"New COUNTER-UAS contract", true},
		{"Drones over the base", true},
		{"Budget hearing recap", false},
	}
	for _, tt := range tests {
		if got := f.Match(tt.text); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	if !NewRelevanceFilter(nil).Match("anything") {
		t.Error("empty filter should accept everything")
	}
}
