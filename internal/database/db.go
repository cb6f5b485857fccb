package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)

// psql builds Postgres-flavoured statements.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps the pgx connection pool
type DB struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and verifies it with a ping
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases all pooled connections
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks database reachability
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
