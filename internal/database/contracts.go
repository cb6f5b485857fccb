package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// value is read back as text so it round-trips through decimal.Decimal exactly.
const contractColumns = `id, contract_number, title, description, company, agency, value::text,
	award_date, category, status, source_url, created_at, updated_at`

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	var value string
	err := row.Scan(&c.ID, &c.ContractNumber, &c.Title, &c.Description, &c.Company, &c.Agency,
		&value, &c.AwardDate, &c.Category, &c.Status, &c.SourceURL, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid contract value %q: %w", value, err)
	}
	return &c, nil
}

func (db *DB) getContract(ctx context.Context, where string, arg any) (*Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE ` + where + ` LIMIT 1`
	c, err := scanContract(db.pool.QueryRow(ctx, query, arg))
	if notFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// GetContractByNumber looks a contract up by its contract number
func (db *DB) GetContractByNumber(ctx context.Context, number string) (*Contract, error) {
	return db.getContract(ctx, "contract_number = $1", number)
}

// GetContractBySourceURL looks a contract up by its source URL
func (db *DB) GetContractBySourceURL(ctx context.Context, sourceURL string) (*Contract, error) {
	return db.getContract(ctx, "source_url = $1", sourceURL)
}

// CreateContract inserts a new contract
func (db *DB) CreateContract(ctx context.Context, c *Contract) error {
	if c.Status == "" {
		c.Status = ContractActive
	}
	if c.Category == "" {
		c.Category = CategoryContracts
	}

	query := `
		INSERT INTO contracts (contract_number, title, description, company, agency, value, award_date, category, status, source_url)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := db.pool.QueryRow(ctx, query,
		c.ContractNumber,
		c.Title,
		c.Description,
		c.Company,
		c.Agency,
		c.Value.StringFixed(2),
		c.AwardDate,
		c.Category,
		c.Status,
		c.SourceURL,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

// UpdateContractValue overwrites the monetary value of a contract
func (db *DB) UpdateContractValue(ctx context.Context, id int64, value decimal.Decimal) error {
	query := `UPDATE contracts SET value = $2::numeric, updated_at = NOW() WHERE id = $1`
	if _, err := db.pool.Exec(ctx, query, id, value.StringFixed(2)); err != nil {
		return fmt.Errorf("failed to update contract value: %w", err)
	}
	return nil
}

// ListContracts returns one page of contracts matching the filter and the total count
func (db *DB) ListContracts(ctx context.Context, filter ContractFilter) ([]*Contract, int, error) {
	filter = filter.withDefaults()

	countSQL, countArgs, err := contractCountQuery(filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := db.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contracts: %w", err)
	}

	listSQL, listArgs, err := contractListQuery(filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := db.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating contracts: %w", err)
	}

	return contracts, total, nil
}
