package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/extractor"
)

const (
	defaultLimit = 20
	defaultDelay = 1500 * time.Millisecond
)

// Store is the persistence the image backfill needs
type Store interface {
	ListArticlesMissingImage(ctx context.Context, limit int) ([]*database.Article, error)
	UpdateArticleImage(ctx context.Context, id int64, imageURL string) error
}

// Extractor fetches an article page and finds its image
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*extractor.Result, error)
}

// Result summarizes one backfill run
type Result struct {
	Checked int      `json:"checked"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Job re-extracts images for published articles that have none
type Job struct {
	store     Store
	extractor Extractor
	delay     time.Duration
	logger    *slog.Logger
}

// New creates a backfill job. A negative delay disables the pause between articles.
func New(store Store, ext Extractor, delay time.Duration, logger *slog.Logger) *Job {
	if delay == 0 {
		delay = defaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		store:     store,
		extractor: ext,
		delay:     delay,
		logger:    logger.With("component", "image-backfill"),
	}
}

// Run checks up to limit articles; zero or less means 20.
func (j *Job) Run(ctx context.Context, limit int) (Result, error) {
	res := Result{Errors: []string{}}
	if limit <= 0 {
		limit = defaultLimit
	}

	articles, err := j.store.ListArticlesMissingImage(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("failed to list articles: %w", err)
	}

	for i, article := range articles {
		if i > 0 && !sleep(ctx, j.delay) {
			res.Errors = append(res.Errors, "backfill interrupted: "+ctx.Err().Error())
			break
		}
		res.Checked++

		extracted, err := j.extractor.Extract(ctx, article.SourceURL)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("article %d: %v", article.ID, err))
			j.logger.Warn("image extraction failed", "id", article.ID, "url", article.SourceURL, "error", err)
			continue
		}
		if extracted.ImageURL == "" {
			continue
		}

		if err := j.store.UpdateArticleImage(ctx, article.ID, extracted.ImageURL); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("article %d: %v", article.ID, err))
			continue
		}
		res.Updated++
	}

	j.logger.Info("image backfill finished", "checked", res.Checked, "updated", res.Updated, "failed", res.Failed)
	return res, nil
}

// sleep waits for d, returning false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
