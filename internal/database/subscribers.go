package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const subscriberColumns = `id, email, status, unsubscribe_token, alerts_enabled, alert_frequency,
	min_confidence, categories, alerts_sent, alerts_received, last_alert_at, created_at`

func scanSubscriber(row pgx.Row) (*Subscriber, error) {
	var s Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Status, &s.UnsubscribeToken, &s.AlertsEnabled, &s.AlertFrequency,
		&s.MinConfidence, &s.Categories, &s.AlertsSent, &s.AlertsReceived, &s.LastAlertAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubscriber inserts a new active subscriber with a fresh unsubscribe
// token. An existing email yields ErrDuplicate.
func (db *DB) CreateSubscriber(ctx context.Context, s *Subscriber) error {
	if s.Status == "" {
		s.Status = SubscriberActive
	}
	if s.AlertFrequency == "" {
		s.AlertFrequency = FrequencyInstant
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	s.UnsubscribeToken = uuid.NewString()

	query := `
		INSERT INTO subscribers (email, status, unsubscribe_token, alerts_enabled, alert_frequency, min_confidence, categories)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := db.pool.QueryRow(ctx, query,
		s.Email,
		s.Status,
		s.UnsubscribeToken,
		s.AlertsEnabled,
		s.AlertFrequency,
		s.MinConfidence,
		s.Categories,
	).Scan(&s.ID, &s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	return nil
}

// Unsubscribe marks the subscriber owning token as unsubscribed
func (db *DB) Unsubscribe(ctx context.Context, token string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE subscribers SET status = $2, alerts_enabled = FALSE WHERE unsubscribe_token = $1`,
		token, SubscriberUnsubscribed)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAlertSubscribers returns active subscribers with instant alerts enabled.
// When category is non-empty only subscribers whose category list is empty or
// contains it are returned.
func (db *DB) ListAlertSubscribers(ctx context.Context, category string) ([]*Subscriber, error) {
	query := `SELECT ` + subscriberColumns + `
		FROM subscribers
		WHERE status = $1
		  AND alerts_enabled = TRUE
		  AND alert_frequency = $2
		  AND ($3::text = '' OR cardinality(categories) = 0 OR $3::text = ANY(categories))
		ORDER BY id`

	rows, err := db.pool.Query(ctx, query, SubscriberActive, FrequencyInstant, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subs []*Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscribers: %w", err)
	}
	return subs, nil
}

// RecordAlertDelivered bumps the subscriber's alert counters
func (db *DB) RecordAlertDelivered(ctx context.Context, subscriberID int64) error {
	query := `
		UPDATE subscribers
		SET alerts_sent = alerts_sent + 1,
		    alerts_received = alerts_received + 1,
		    last_alert_at = NOW()
		WHERE id = $1
	`
	if _, err := db.pool.Exec(ctx, query, subscriberID); err != nil {
		return fmt.Errorf("failed to record alert delivery: %w", err)
	}
	return nil
}

// CountActiveSubscribers returns the number of active subscribers
func (db *DB) CountActiveSubscribers(ctx context.Context) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscribers WHERE status = $1`, SubscriberActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscribers: %w", err)
	}
	return n, nil
}
