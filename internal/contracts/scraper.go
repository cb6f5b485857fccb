package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/database"
)

const lookbackDays = 30

// Store is the persistence the contract scraper needs
type Store interface {
	GetContractByNumber(ctx context.Context, number string) (*database.Contract, error)
	GetContractBySourceURL(ctx context.Context, sourceURL string) (*database.Contract, error)
	CreateContract(ctx context.Context, c *database.Contract) error
	UpdateContractValue(ctx context.Context, id int64, value decimal.Decimal) error
}

// Searcher lists award notices in a posting window
type Searcher interface {
	Search(ctx context.Context, from, to time.Time) ([]Notice, error)
}

// Result summarizes one contract ingestion run
type Result struct {
	Found    int      `json:"found"`
	Added    int      `json:"added"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Filtered int      `json:"filtered"`
	Errors   []string `json:"errors"`
}

// Scraper ingests recent contract awards matching the contract keywords
type Scraper struct {
	store    Store
	source   Searcher
	keywords []string
	now      func() time.Time
	logger   *slog.Logger
}

// NewScraper creates a contract scraper. source may be nil when no SAM.gov key
// is configured.
func NewScraper(store Store, source Searcher, rules *config.Rules, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		store:    store,
		source:   source,
		keywords: rules.ContractKeywords,
		now:      time.Now,
		logger:   logger.With("component", "contract-scraper"),
	}
}

// Run fetches awards posted in the trailing 30 days and upserts the relevant ones.
func (s *Scraper) Run(ctx context.Context) (Result, error) {
	res := Result{Errors: []string{}}

	if s.source == nil {
		res.Errors = append(res.Errors, "SAM_API_KEY not configured")
		return res, nil
	}

	to := s.now()
	from := to.AddDate(0, 0, -lookbackDays)

	notices, err := s.source.Search(ctx, from, to)
	if err != nil {
		if len(notices) == 0 {
			return res, fmt.Errorf("failed to search contracts: %w", err)
		}
		// keep the pages that did arrive
		res.Errors = append(res.Errors, err.Error())
	}
	res.Found = len(notices)

	s.logger.Info("contract search complete", "found", res.Found, "from", from.Format("2006-01-02"))

	for _, n := range notices {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, "contract ingestion interrupted: "+ctx.Err().Error())
			break
		}

		if len(s.keywords) > 0 && !matchesAny(relevanceText(n), s.keywords) {
			res.Filtered++
			continue
		}
		c, err := Normalize(n)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}

		outcome, err := s.upsert(ctx, c)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", c.Title, err))
			s.logger.Warn("contract upsert failed", "title", c.Title, "error", err)
			continue
		}
		switch outcome {
		case outcomeAdded:
			res.Added++
		case outcomeUpdated:
			res.Updated++
		default:
			res.Skipped++
		}
	}

	s.logger.Info("contract ingestion finished",
		"added", res.Added, "updated", res.Updated, "skipped", res.Skipped, "filtered", res.Filtered)
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeAdded
	outcomeUpdated
)

// upsert matches an existing contract by number, then by source URL. A match
// is updated only when the new value is non-zero and differs.
func (s *Scraper) upsert(ctx context.Context, c *database.Contract) (outcome, error) {
	existing, err := s.find(ctx, c)
	if err != nil {
		return outcomeSkipped, err
	}

	if existing != nil {
		if c.Value.IsZero() || c.Value.Equal(existing.Value) {
			return outcomeSkipped, nil
		}
		if err := s.store.UpdateContractValue(ctx, existing.ID, c.Value); err != nil {
			return outcomeSkipped, err
		}
		return outcomeUpdated, nil
	}

	err = s.store.CreateContract(ctx, c)
	if errors.Is(err, database.ErrDuplicate) {
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, err
	}
	return outcomeAdded, nil
}

func (s *Scraper) find(ctx context.Context, c *database.Contract) (*database.Contract, error) {
	if c.ContractNumber != nil {
		existing, err := s.store.GetContractByNumber(ctx, *c.ContractNumber)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
	}
	if c.SourceURL != nil {
		existing, err := s.store.GetContractBySourceURL(ctx, *c.SourceURL)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
