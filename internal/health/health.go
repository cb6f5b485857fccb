package health

import (
	"context"
	"fmt"
	"time"
)

// Check and report states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

const minActiveFeedRatio = 0.5

// Store is what the health checks read
type Store interface {
	Ping(ctx context.Context) error
	CountArticles(ctx context.Context) (int, error)
	FeedCounts(ctx context.Context) (active, total int, err error)
	LatestArticleCreatedAt(ctx context.Context) (*time.Time, error)
}

// Check is the outcome of one health check
type Check struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
	Message   string `json:"message,omitempty"`
}

// Report is the aggregate health of the service
type Report struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
}

// Checker runs the read-only check battery
type Checker struct {
	store      Store
	staleAfter time.Duration
	now        func() time.Time
}

// NewChecker creates a checker; the pipeline is stale when no article was
// created within staleAfter.
func NewChecker(store Store, staleAfter time.Duration) *Checker {
	if staleAfter <= 0 {
		staleAfter = 48 * time.Hour
	}
	return &Checker{store: store, staleAfter: staleAfter, now: time.Now}
}

// Run executes every check. The report is error when the database is
// unreachable, degraded when any other check is not ok, else ok.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Status:    StatusOK,
		Timestamp: c.now().UTC(),
		Checks:    make(map[string]Check, 4),
	}

	db := timed(func() (string, string) {
		if err := c.store.Ping(ctx); err != nil {
			return StatusError, err.Error()
		}
		return StatusOK, ""
	})
	report.Checks["database"] = db

	if db.Status == StatusError {
		report.Status = StatusError
		return report
	}

	report.Checks["articles"] = timed(func() (string, string) {
		n, err := c.store.CountArticles(ctx)
		if err != nil {
			return StatusError, err.Error()
		}
		if n == 0 {
			return StatusDegraded, "no articles stored"
		}
		return StatusOK, fmt.Sprintf("%d articles", n)
	})

	report.Checks["feeds"] = timed(func() (string, string) {
		active, total, err := c.store.FeedCounts(ctx)
		if err != nil {
			return StatusError, err.Error()
		}
		msg := fmt.Sprintf("%d of %d feeds active", active, total)
		if total == 0 || float64(active)/float64(total) < minActiveFeedRatio {
			return StatusDegraded, msg
		}
		return StatusOK, msg
	})

	report.Checks["pipeline"] = timed(func() (string, string) {
		latest, err := c.store.LatestArticleCreatedAt(ctx)
		if err != nil {
			return StatusError, err.Error()
		}
		if latest == nil {
			return StatusDegraded, "no articles ingested yet"
		}
		age := c.now().Sub(*latest)
		msg := fmt.Sprintf("last article %s ago", age.Round(time.Minute))
		if age > c.staleAfter {
			return StatusDegraded, msg
		}
		return StatusOK, msg
	})

	for _, check := range report.Checks {
		if check.Status != StatusOK {
			report.Status = StatusDegraded
		}
	}
	return report
}

func timed(fn func() (status, message string)) Check {
	start := time.Now()
	status, message := fn()
	return Check{
		Status:    status,
		LatencyMS: time.Since(start).Milliseconds(),
		Message:   message,
	}
}
