package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkilaker/dronewire/internal/database"
)

const (
	// AlertThreshold is the minimum confidence for an article to be alerted at all.
	AlertThreshold   = 0.8
	maxAlertArticles = 10
	defaultSendDelay = 100 * time.Millisecond
)

// Store is the persistence the dispatcher needs
type Store interface {
	ListAlertCandidates(ctx context.Context, minConfidence float64, limit int) ([]*database.Article, error)
	ListAlertSubscribers(ctx context.Context, category string) ([]*database.Subscriber, error)
	RecordAlertDelivered(ctx context.Context, subscriberID int64) error
	MarkAlertSent(ctx context.Context, id int64) error
}

// Result summarizes one dispatch run
type Result struct {
	ArticlesProcessed int      `json:"articlesProcessed"`
	EmailsSent        int      `json:"emailsSent"`
	EmailsFailed      int      `json:"emailsFailed"`
	Errors            []string `json:"errors"`
}

// Dispatcher emails high-confidence articles to instant-alert subscribers
type Dispatcher struct {
	store   Store
	mailer  Mailer
	siteURL string
	delay   time.Duration
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. A negative delay disables the pause between sends.
func NewDispatcher(store Store, mailer Mailer, siteURL string, delay time.Duration, logger *slog.Logger) *Dispatcher {
	if delay == 0 {
		delay = defaultSendDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:   store,
		mailer:  mailer,
		siteURL: siteURL,
		delay:   delay,
		logger:  logger.With("component", "alerts"),
	}
}

// Run sends alerts for up to 10 unsent articles. Every candidate is marked as
// alerted afterwards, even when some sends failed.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	res := Result{Errors: []string{}}

	articles, err := d.store.ListAlertCandidates(ctx, AlertThreshold, maxAlertArticles)
	if err != nil {
		return res, fmt.Errorf("failed to list alert candidates: %w", err)
	}

	sends := 0
	for _, article := range articles {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, "dispatch interrupted: "+ctx.Err().Error())
			break
		}

		subs, err := d.store.ListAlertSubscribers(ctx, article.Category)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("article %d: %v", article.ID, err))
			continue
		}

		summaryHTML, err := RenderMarkdown(deref(article.Summary))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("article %d: render summary: %v", article.ID, err))
			continue
		}

		confidence := 0.0
		if article.Confidence != nil {
			confidence = *article.Confidence
		}

		for _, sub := range subs {
			if sub.MinConfidence > confidence {
				continue
			}
			if sends > 0 && !sleep(ctx, d.delay) {
				break
			}
			sends++

			if err := d.send(ctx, article, summaryHTML, sub); err != nil {
				res.EmailsFailed++
				res.Errors = append(res.Errors, fmt.Sprintf("article %d to %s: %v", article.ID, sub.Email, err))
				d.logger.Warn("alert send failed", "article", article.ID, "subscriber", sub.ID, "error", err)
				continue
			}
			res.EmailsSent++

			if err := d.store.RecordAlertDelivered(ctx, sub.ID); err != nil {
				res.Errors = append(res.Errors, err.Error())
			}
		}

		if err := d.store.MarkAlertSent(ctx, article.ID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("article %d: %v", article.ID, err))
			continue
		}
		res.ArticlesProcessed++
	}

	d.logger.Info("alerts dispatched", "articles", res.ArticlesProcessed, "sent", res.EmailsSent, "failed", res.EmailsFailed)
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, article *database.Article, summaryHTML string, sub *database.Subscriber) error {
	body, err := renderComponent(ctx, AlertEmail(article, summaryHTML, d.siteURL, UnsubscribeURL(d.siteURL, sub.UnsubscribeToken)))
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, Message{
		To:      sub.Email,
		Subject: "Alert: " + article.Title,
		HTML:    body,
	})
}

// SendWelcome emails a confirmation to a new subscriber
func SendWelcome(ctx context.Context, mailer Mailer, siteURL string, sub *database.Subscriber) error {
	body, err := renderComponent(ctx, WelcomeEmail(siteURL, UnsubscribeURL(siteURL, sub.UnsubscribeToken)))
	if err != nil {
		return err
	}
	return mailer.Send(ctx, Message{
		To:      sub.Email,
		Subject: "Welcome to Dronewire alerts",
		HTML:    body,
	})
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
