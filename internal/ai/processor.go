package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/extractor"
)

const (
	defaultBatchSize = 10
	defaultItemDelay = 2 * time.Second
	minStoredContent = 500
)

// Store is the persistence the processor needs
type Store interface {
	ListPendingArticles(ctx context.Context, limit int) ([]*database.Article, error)
	UpdateArticleContent(ctx context.Context, id int64, content string, imageURL *string, readTimeMinutes int) error
	PublishArticle(ctx context.Context, id int64, e database.Enrichment) error
	UpsertTag(ctx context.Context, name, slug, category string) (*database.Tag, error)
	LinkTag(ctx context.Context, articleID, tagID int64) error
}

// Completer returns a JSON completion for a system and user prompt
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// ContentExtractor fetches the full text of an article page
type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (*extractor.Result, error)
}

// Result summarizes one processing run
type Result struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// Options tune a Processor. Extractor and Embedder are optional. A negative
// Delay disables the pause between items.
type Options struct {
	Extractor ContentExtractor
	Embedder  Embedder
	BatchSize int
	Delay     time.Duration
	Logger    *slog.Logger
}

// Processor enriches pending articles with a model-written summary and tags
type Processor struct {
	store     Store
	llm       Completer
	extractor ContentExtractor
	embedder  Embedder
	tags      *TagClassifier
	batchSize int
	delay     time.Duration
	logger    *slog.Logger
}

// NewProcessor creates a processor. llm may be nil when no API key is
// configured; Run then reports the problem without touching any article.
func NewProcessor(store Store, llm Completer, rules *config.Rules, opts Options) *Processor {
	p := &Processor{
		store:     store,
		llm:       llm,
		extractor: opts.Extractor,
		embedder:  opts.Embedder,
		tags:      NewTagClassifier(rules.TagCategories),
		batchSize: opts.BatchSize,
		delay:     opts.Delay,
		logger:    opts.Logger,
	}
	if p.batchSize <= 0 {
		p.batchSize = defaultBatchSize
	}
	if p.delay == 0 {
		p.delay = defaultItemDelay
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "ai-processor")
	return p
}

// Run enriches up to limit pending articles, one at a time. A limit of zero
// or less uses the configured batch size.
func (p *Processor) Run(ctx context.Context, limit int) (Result, error) {
	res := Result{Errors: []string{}}

	if p.llm == nil {
		res.Errors = append(res.Errors, "OPENAI_API_KEY not configured")
		return res, nil
	}
	if limit <= 0 {
		limit = p.batchSize
	}

	articles, err := p.store.ListPendingArticles(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("failed to list pending articles: %w", err)
	}

	p.logger.Info("processing articles", "count", len(articles))

	for i, article := range articles {
		if i > 0 && !sleep(ctx, p.delay) {
			res.Errors = append(res.Errors, "processing interrupted: "+ctx.Err().Error())
			break
		}

		err := p.processArticle(ctx, article, &res)
		switch {
		case err == nil:
			res.Processed++
		case errors.Is(err, database.ErrNotFound):
			res.Skipped++
			p.logger.Info("article already published", "id", article.ID)
		default:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("article %d: %v", article.ID, err))
			p.logger.Warn("article processing failed", "id", article.ID, "error", err)
		}
	}

	p.logger.Info("processing finished", "processed", res.Processed, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (p *Processor) processArticle(ctx context.Context, article *database.Article, res *Result) error {
	content := deref(article.Content)
	if len(content) < minStoredContent {
		content = p.backfillContent(ctx, article, content)
	}

	raw, err := p.llm.CompleteJSON(ctx, systemPrompt, BuildPrompt(article.Title, deref(article.Excerpt), content))
	if err != nil {
		return err
	}

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		return err
	}

	enrichment := database.Enrichment{
		Summary:    analysis.Summary,
		KeyPoints:  analysis.KeyPoints,
		Rationale:  analysis.Rationale,
		Confidence: analysis.Confidence,
		Category:   analysis.Category,
	}

	if p.embedder != nil {
		vec, err := p.embedder.Embed(ctx, EmbeddingText(article.Title, analysis.Summary, analysis.KeyPoints))
		if err != nil {
			p.logger.Warn("embedding failed", "id", article.ID, "error", err)
		} else {
			enrichment.Embedding = vec
		}
	}

	if err := p.store.PublishArticle(ctx, article.ID, enrichment); err != nil {
		return err
	}

	for _, name := range analysis.Tags {
		if err := p.linkTag(ctx, article.ID, name); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("article %d tag %q: %v", article.ID, name, err))
			p.logger.Warn("tag link failed", "id", article.ID, "tag", name, "error", err)
		}
	}
	return nil
}

// backfillContent replaces short stored content with the extracted page text.
// Extraction failures only cost the model some context.
func (p *Processor) backfillContent(ctx context.Context, article *database.Article, current string) string {
	if p.extractor == nil || article.SourceURL == "" {
		return current
	}

	extracted, err := p.extractor.Extract(ctx, article.SourceURL)
	if err != nil {
		p.logger.Warn("content backfill failed", "id", article.ID, "url", article.SourceURL, "error", err)
		return current
	}
	if len(extracted.Text) <= len(current) {
		return current
	}

	var image *string
	if extracted.ImageURL != "" {
		image = &extracted.ImageURL
	}
	if err := p.store.UpdateArticleContent(ctx, article.ID, extracted.Text, image, extracted.ReadTimeMinutes); err != nil {
		p.logger.Warn("failed to store backfilled content", "id", article.ID, "error", err)
	}
	return extracted.Text
}

func (p *Processor) linkTag(ctx context.Context, articleID int64, name string) error {
	slug := Slugify(name)
	if slug == "" {
		return nil
	}
	tag, err := p.store.UpsertTag(ctx, strings.TrimSpace(name), slug, p.tags.Category(name))
	if err != nil {
		return err
	}
	return p.store.LinkTag(ctx, articleID, tag.ID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
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
