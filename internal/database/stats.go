package database

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Stats aggregates counters for the admin dashboard
type Stats struct {
	Articles    ArticleStats  `json:"articles"`
	TopViewed   []TopArticle  `json:"topViewed"`
	Feeds       FeedStats     `json:"feeds"`
	Contracts   ContractStats `json:"contracts"`
	Subscribers int           `json:"subscribers"`
	ContactsNew int           `json:"contactsNew"`
}

// ArticleStats counts articles by status and category
type ArticleStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
	Views      int64          `json:"views"`
}

// TopArticle is a row in the most-viewed list
type TopArticle struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	ViewCount int64  `json:"viewCount"`
}

// FeedStats summarizes feed health
type FeedStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Erroring int `json:"erroring"`
}

// ContractStats summarizes tracked contracts
type ContractStats struct {
	Total      int             `json:"total"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// GetStats collects the admin dashboard aggregates
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Articles: ArticleStats{
			ByStatus:   map[string]int{},
			ByCategory: map[string]int{},
		},
	}

	if err := db.countGrouped(ctx, `SELECT status, COUNT(*) FROM articles GROUP BY status`, stats.Articles.ByStatus); err != nil {
		return nil, err
	}
	if err := db.countGrouped(ctx, `SELECT category, COUNT(*) FROM articles GROUP BY category`, stats.Articles.ByCategory); err != nil {
		return nil, err
	}
	for _, n := range stats.Articles.ByStatus {
		stats.Articles.Total += n
	}

	if err := db.pool.QueryRow(ctx, `SELECT COALESCE(SUM(view_count), 0) FROM articles`).Scan(&stats.Articles.Views); err != nil {
		return nil, fmt.Errorf("failed to sum views: %w", err)
	}

	rows, err := db.pool.Query(ctx, `SELECT id, title, view_count FROM articles ORDER BY view_count DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top articles: %w", err)
	}
	for rows.Next() {
		var t TopArticle
		if err := rows.Scan(&t.ID, &t.Title, &t.ViewCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan top article: %w", err)
		}
		stats.TopViewed = append(stats.TopViewed, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top articles: %w", err)
	}

	feedQuery := `SELECT COUNT(*), COUNT(*) FILTER (WHERE active), COUNT(*) FILTER (WHERE error_count > 0) FROM rss_feeds`
	if err := db.pool.QueryRow(ctx, feedQuery).Scan(&stats.Feeds.Total, &stats.Feeds.Active, &stats.Feeds.Erroring); err != nil {
		return nil, fmt.Errorf("failed to count feeds: %w", err)
	}

	var totalValue string
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(value), 0)::text FROM contracts`).Scan(&stats.Contracts.Total, &totalValue); err != nil {
		return nil, fmt.Errorf("failed to sum contracts: %w", err)
	}
	stats.Contracts.TotalValue, err = decimal.NewFromString(totalValue)
	if err != nil {
		return nil, fmt.Errorf("invalid contract total %q: %w", totalValue, err)
	}

	if stats.Subscribers, err = db.CountActiveSubscribers(ctx); err != nil {
		return nil, err
	}

	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contact_submissions WHERE status = 'new'`).Scan(&stats.ContactsNew); err != nil {
		return nil, fmt.Errorf("failed to count contact submissions: %w", err)
	}

	return stats, nil
}

// FeedCounts returns the number of active and total feeds
func (db *DB) FeedCounts(ctx context.Context) (active, total int, err error) {
	err = db.pool.QueryRow(ctx, `SELECT COUNT(*) FILTER (WHERE active), COUNT(*) FROM rss_feeds`).Scan(&active, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return active, total, nil
}

func (db *DB) countGrouped(ctx context.Context, query string, into map[string]int) error {
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}
