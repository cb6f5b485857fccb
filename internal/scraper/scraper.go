package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/extractor"
)

const (
	defaultUserAgent = "DronewireBot/1.0 (+https://dronewire.local; counter-UAS news aggregator)"
	maxExcerptChars  = 1000
	defaultFeedDelay = time.Second
)

// ErrAlreadyRunning is returned when a scrape is started while another is in progress.
var ErrAlreadyRunning = errors.New("scrape already running")

// Store is the persistence the scraper needs
type Store interface {
	ListActiveFeeds(ctx context.Context) ([]*database.Feed, error)
	ArticleExists(ctx context.Context, sourceURL string) (bool, error)
	CreateArticle(ctx context.Context, article *database.Article) error
	RecordFeedSuccess(ctx context.Context, id int64) error
	RecordFeedError(ctx context.Context, id int64, message string, threshold int) (bool, error)
}

// Result summarizes one scrape run
type Result struct {
	FeedsProcessed  int      `json:"feedsProcessed"`
	FeedsFailed     int      `json:"feedsFailed"`
	FeedsDisabled   int      `json:"feedsDisabled"`
	ArticlesAdded   int      `json:"articlesAdded"`
	ArticlesSkipped int      `json:"articlesSkipped"`
	Errors          []string `json:"errors"`
}

// Options tune a Scraper; zero values pick defaults. A negative Delay disables
// the pause between feeds.
type Options struct {
	HTTPClient *http.Client
	Delay      time.Duration
	Logger     *slog.Logger
	Progress   *ProgressTracker
}

// Scraper polls RSS feeds and stores new relevant items as pending articles
type Scraper struct {
	store    Store
	client   *http.Client
	filter   *RelevanceFilter
	images   *extractor.ImageDenylist
	delay    time.Duration
	logger   *slog.Logger
	progress *ProgressTracker
}

// New creates a new scraper instance
func New(store Store, rules *config.Rules, opts Options) *Scraper {
	s := &Scraper{
		store:    store,
		client:   opts.HTTPClient,
		filter:   NewRelevanceFilter(rules.Keywords),
		images:   extractor.NewImageDenylist(rules.ImageDenylist),
		delay:    opts.Delay,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 30 * time.Second}
	}
	if s.delay == 0 {
		s.delay = defaultFeedDelay
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "rss-scraper")
	if s.progress == nil {
		s.progress = NewProgressTracker()
	}
	return s
}

// Progress exposes the tracker for the running scrape
func (s *Scraper) Progress() *ProgressTracker {
	return s.progress
}

// Run polls every active feed once, sequentially, pausing between feeds.
func (s *Scraper) Run(ctx context.Context) (Result, error) {
	res := Result{Errors: []string{}}

	feeds, err := s.store.ListActiveFeeds(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list feeds: %w", err)
	}

	if !s.progress.Begin(len(feeds)) {
		return res, ErrAlreadyRunning
	}

	s.logger.Info("starting scrape", "feeds", len(feeds))

	for i, feed := range feeds {
		if i > 0 && !sleep(ctx, s.delay) {
			res.Errors = append(res.Errors, "scrape interrupted: "+ctx.Err().Error())
			s.progress.Finish(StatusFailed, "interrupted")
			return res, nil
		}

		s.progress.UpdateProgress(i+1, "scraping "+feed.Name)
		added, skipped, err := s.scrapeFeed(ctx, feed)
		res.ArticlesAdded += added
		res.ArticlesSkipped += skipped

		if err != nil {
			res.FeedsFailed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", feed.Name, err))
			s.logger.Warn("feed failed", "feed", feed.Name, "url", feed.URL, "error", err)

			disabled, recErr := s.store.RecordFeedError(ctx, feed.ID, err.Error(), database.FeedErrorThreshold)
			if recErr != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", feed.Name, recErr))
				continue
			}
			if disabled {
				res.FeedsDisabled++
				s.logger.Warn("feed deactivated after repeated failures", "feed", feed.Name)
			}
			continue
		}

		res.FeedsProcessed++
		if err := s.store.RecordFeedSuccess(ctx, feed.ID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", feed.Name, err))
		}
	}

	s.progress.Finish(StatusCompleted, fmt.Sprintf("added %d articles", res.ArticlesAdded))
	s.logger.Info("scrape finished",
		"processed", res.FeedsProcessed,
		"failed", res.FeedsFailed,
		"added", res.ArticlesAdded,
		"skipped", res.ArticlesSkipped,
	)
	return res, nil
}

// scrapeFeed fetches and parses one feed. Only fetch and parse problems are
// returned as errors; per-item store failures are logged and skipped.
func (s *Scraper) scrapeFeed(ctx context.Context, feed *database.Feed) (added, skipped int, err error) {
	parsed, err := s.fetchFeed(ctx, feed.URL)
	if err != nil {
		return 0, 0, err
	}

	sourceName := feed.Name
	if sourceName == "" {
		sourceName = parsed.Title
	}

	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || strings.TrimSpace(item.Title) == "" {
			skipped++
			continue
		}

		description := plainText(item.Description)
		if !s.filter.Match(item.Title + " " + description) {
			skipped++
			continue
		}

		exists, err := s.store.ArticleExists(ctx, link)
		if err != nil {
			s.logger.Warn("dedupe check failed", "url", link, "error", err)
			skipped++
			continue
		}
		if exists {
			skipped++
			continue
		}

		article := s.buildArticle(item, feed, sourceName, description)
		if err := s.store.CreateArticle(ctx, article); err != nil {
			if !errors.Is(err, database.ErrDuplicate) {
				s.logger.Warn("failed to save article", "url", link, "error", err)
			}
			skipped++
			continue
		}

		added++
		s.progress.IncrementArticlesAdded()
		s.logger.Debug("added article", "id", article.ID, "url", link)
	}

	return added, skipped, nil
}

func (s *Scraper) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bad feed url: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}

func (s *Scraper) buildArticle(item *gofeed.Item, feed *database.Feed, sourceName, description string) *database.Article {
	article := &database.Article{
		Title:       strings.TrimSpace(item.Title),
		SourceName:  sourceName,
		SourceURL:   strings.TrimSpace(item.Link),
		PublishedAt: time.Now().UTC(),
		Category:    database.NormalizeCategory(feed.Category),
		Status:      database.StatusPendingAI,
	}

	if item.PublishedParsed != nil {
		article.PublishedAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = item.UpdatedParsed.UTC()
	}

	if description != "" {
		excerpt := truncate(description, maxExcerptChars)
		article.Excerpt = &excerpt
	}

	if content := plainText(item.Content); content != "" {
		article.Content = &content
	}

	if img := PickImage(item, s.images); img != "" {
		article.ImageURL = &img
	}

	return article
}

// plainText strips markup from an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
