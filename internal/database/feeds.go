package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FeedErrorThreshold is the number of consecutive failures after which a feed is deactivated.
const FeedErrorThreshold = 5

const feedColumns = `id, name, url, category, active, error_count, last_error, last_checked_at, last_success_at, created_at`

func scanFeed(row pgx.Row) (*Feed, error) {
	var f Feed
	err := row.Scan(&f.ID, &f.Name, &f.URL, &f.Category, &f.Active, &f.ErrorCount,
		&f.LastError, &f.LastCheckedAt, &f.LastSuccessAt, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (db *DB) queryFeeds(ctx context.Context, query string, args ...any) ([]*Feed, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	var feeds []*Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feeds: %w", err)
	}
	return feeds, nil
}

// ListActiveFeeds returns feeds the scraper should poll
func (db *DB) ListActiveFeeds(ctx context.Context) ([]*Feed, error) {
	return db.queryFeeds(ctx, `SELECT `+feedColumns+` FROM rss_feeds WHERE active = TRUE ORDER BY id`)
}

// ListFeeds returns every registered feed
func (db *DB) ListFeeds(ctx context.Context) ([]*Feed, error) {
	return db.queryFeeds(ctx, `SELECT `+feedColumns+` FROM rss_feeds ORDER BY id`)
}

// CreateFeed registers a new feed source
func (db *DB) CreateFeed(ctx context.Context, feed *Feed) error {
	if feed.Category == "" {
		feed.Category = CategoryGeneral
	}

	query := `
		INSERT INTO rss_feeds (name, url, category, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, active, created_at
	`

	err := db.pool.QueryRow(ctx, query, feed.Name, feed.URL, feed.Category).Scan(&feed.ID, &feed.Active, &feed.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}
	return nil
}

// RecordFeedSuccess resets the error counter after a successful poll
func (db *DB) RecordFeedSuccess(ctx context.Context, id int64) error {
	query := `
		UPDATE rss_feeds
		SET error_count = 0, last_error = NULL, last_checked_at = NOW(), last_success_at = NOW()
		WHERE id = $1
	`
	if _, err := db.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to record feed success: %w", err)
	}
	return nil
}

// RecordFeedError increments the error counter and deactivates the feed once
// it reaches threshold. It reports whether the feed is now inactive.
func (db *DB) RecordFeedError(ctx context.Context, id int64, message string, threshold int) (bool, error) {
	query := `
		UPDATE rss_feeds
		SET error_count = error_count + 1,
		    last_error = $2,
		    last_checked_at = NOW(),
		    active = CASE WHEN error_count + 1 >= $3 THEN FALSE ELSE active END
		WHERE id = $1
		RETURNING active
	`

	var active bool
	err := db.pool.QueryRow(ctx, query, id, message, threshold).Scan(&active)
	if notFound(err) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to record feed error: %w", err)
	}
	return !active, nil
}
