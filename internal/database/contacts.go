package database

import (
	"context"
	"fmt"
)

// CreateContactSubmission stores an inbound contact form submission
func (db *DB) CreateContactSubmission(ctx context.Context, c *ContactSubmission) error {
	if c.Status == "" {
		c.Status = "new"
	}

	query := `
		INSERT INTO contact_submissions (name, email, company, subject, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := db.pool.QueryRow(ctx, query, c.Name, c.Email, c.Company, c.Subject, c.Message, c.Status).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact submission: %w", err)
	}
	return nil
}
