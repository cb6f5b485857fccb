package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const articleColumns = `id, title, excerpt, content, source_name, source_url, published_at, image_url,
	category, status, summary, key_points, rationale, confidence, embedding, read_time_minutes,
	view_count, alert_sent, created_at, updated_at`

func scanArticle(row pgx.Row) (*Article, error) {
	var article Article
	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Excerpt,
		&article.Content,
		&article.SourceName,
		&article.SourceURL,
		&article.PublishedAt,
		&article.ImageURL,
		&article.Category,
		&article.Status,
		&article.Summary,
		&article.KeyPoints,
		&article.Rationale,
		&article.Confidence,
		&article.Embedding,
		&article.ReadTimeMinutes,
		&article.ViewCount,
		&article.AlertSent,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func collectArticles(rows pgx.Rows) ([]*Article, error) {
	defer rows.Close()

	var articles []*Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}

// CreateArticle inserts a new pending article. It returns ErrDuplicate when
// an article with the same source URL already exists.
func (db *DB) CreateArticle(ctx context.Context, article *Article) error {
	if article.Status == "" {
		article.Status = StatusPendingAI
	}
	if article.Category == "" {
		article.Category = CategoryGeneral
	}
	if article.KeyPoints == nil {
		article.KeyPoints = []string{}
	}

	query := `
		INSERT INTO articles (title, excerpt, content, source_name, source_url, published_at, image_url, category, status, key_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_url) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := db.pool.QueryRow(ctx, query,
		article.Title,
		article.Excerpt,
		article.Content,
		article.SourceName,
		article.SourceURL,
		article.PublishedAt,
		article.ImageURL,
		article.Category,
		article.Status,
		article.KeyPoints,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)

	if notFound(err) || isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

// ArticleExists checks if an article with the given source URL already exists
func (db *DB) ArticleExists(ctx context.Context, sourceURL string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM articles WHERE source_url = $1)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}

	return exists, nil
}

// GetArticleByID retrieves an article and its tags
func (db *DB) GetArticleByID(ctx context.Context, id int64) (*Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	article, err := scanArticle(db.pool.QueryRow(ctx, query, id))
	if notFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	if err := db.attachTags(ctx, []*Article{article}); err != nil {
		return nil, err
	}

	return article, nil
}

// ListArticles returns one page of published articles matching the filter and
// the total number of matches.
func (db *DB) ListArticles(ctx context.Context, filter ArticleFilter) ([]*Article, int, error) {
	filter = filter.withDefaults()

	countSQL, countArgs, err := articleCountQuery(filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := db.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	listSQL, listArgs, err := articleListQuery(filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := db.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query articles: %w", err)
	}

	articles, err := collectArticles(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := db.attachTags(ctx, articles); err != nil {
		return nil, 0, err
	}

	return articles, total, nil
}

// GetRecentArticles retrieves the most recently published articles
func (db *DB) GetRecentArticles(ctx context.Context, limit int) ([]*Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE status = $1
		ORDER BY published_at DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, StatusPublished, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent articles: %w", err)
	}

	return collectArticles(rows)
}

// ListPendingArticles returns articles that still need AI enrichment, oldest first
func (db *DB) ListPendingArticles(ctx context.Context, limit int) ([]*Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE status = $1 OR summary IS NULL
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, StatusPendingAI, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending articles: %w", err)
	}

	return collectArticles(rows)
}

// UpdateArticleContent stores extracted full text, and fills the image only
// when the article does not have one yet.
func (db *DB) UpdateArticleContent(ctx context.Context, id int64, content string, imageURL *string, readTimeMinutes int) error {
	query := `
		UPDATE articles
		SET content = $2,
		    image_url = COALESCE(NULLIF(image_url, ''), $3),
		    read_time_minutes = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := db.pool.Exec(ctx, query, id, content, imageURL, readTimeMinutes); err != nil {
		return fmt.Errorf("failed to update article content: %w", err)
	}
	return nil
}

// PublishArticle persists AI enrichment and moves the article to published.
// Only articles still awaiting enrichment are touched, so the status never
// moves backwards and a published article always carries a summary.
func (db *DB) PublishArticle(ctx context.Context, id int64, e Enrichment) error {
	if strings.TrimSpace(e.Summary) == "" {
		return errors.New("cannot publish article without a summary")
	}
	keyPoints := e.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}

	query := `
		UPDATE articles
		SET summary = $2,
		    key_points = $3,
		    rationale = $4,
		    confidence = $5,
		    category = $6,
		    embedding = COALESCE($7, embedding),
		    status = $8,
		    updated_at = NOW()
		WHERE id = $1 AND (status = $9 OR summary IS NULL)
	`

	var embedding []float32
	if len(e.Embedding) > 0 {
		embedding = e.Embedding
	}

	tag, err := db.pool.Exec(ctx, query,
		id,
		e.Summary,
		keyPoints,
		e.Rationale,
		e.Confidence,
		NormalizeCategory(e.Category),
		embedding,
		StatusPublished,
		StatusPendingAI,
	)
	if err != nil {
		return fmt.Errorf("failed to publish article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViewCount bumps the view counter of an article
func (db *DB) IncrementViewCount(ctx context.Context, id int64) error {
	tag, err := db.pool.Exec(ctx, `UPDATE articles SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRelatedCandidates returns the most recently published articles other
// than excludeID, with their tag ids loaded.
func (db *DB) ListRelatedCandidates(ctx context.Context, excludeID int64, limit int) ([]*Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE status = $1 AND id <> $2
		ORDER BY published_at DESC
		LIMIT $3`

	rows, err := db.pool.Query(ctx, query, StatusPublished, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related candidates: %w", err)
	}

	articles, err := collectArticles(rows)
	if err != nil {
		return nil, err
	}

	if err := db.attachTags(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// ListAlertCandidates returns published, summarized, not yet alerted articles
// at or above minConfidence, most recent first.
func (db *DB) ListAlertCandidates(ctx context.Context, minConfidence float64, limit int) ([]*Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE status = $1
		  AND alert_sent = FALSE
		  AND summary IS NOT NULL
		  AND confidence >= $2
		ORDER BY published_at DESC
		LIMIT $3`

	rows, err := db.pool.Query(ctx, query, StatusPublished, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert candidates: %w", err)
	}

	return collectArticles(rows)
}

// MarkAlertSent flags an article so it is not alerted again
func (db *DB) MarkAlertSent(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `UPDATE articles SET alert_sent = TRUE, updated_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark alert sent: %w", err)
	}
	return nil
}

// ListArticlesMissingImage returns published articles without an image, newest first
func (db *DB) ListArticlesMissingImage(ctx context.Context, limit int) ([]*Article, error) {
	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE status = $1 AND (image_url IS NULL OR image_url = '')
		ORDER BY published_at DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, StatusPublished, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles missing images: %w", err)
	}

	return collectArticles(rows)
}

// UpdateArticleImage sets the image URL of an article
func (db *DB) UpdateArticleImage(ctx context.Context, id int64, imageURL string) error {
	if _, err := db.pool.Exec(ctx, `UPDATE articles SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, imageURL); err != nil {
		return fmt.Errorf("failed to update article image: %w", err)
	}
	return nil
}

// LatestArticleCreatedAt returns the creation time of the newest article, or
// nil when the table is empty.
func (db *DB) LatestArticleCreatedAt(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	if err := db.pool.QueryRow(ctx, `SELECT MAX(created_at) FROM articles`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest article: %w", err)
	}
	return latest, nil
}

// CountArticles returns the total number of stored articles
func (db *DB) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}
