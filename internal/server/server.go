package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tkilaker/dronewire/internal/ai"
	"github.com/tkilaker/dronewire/internal/alerts"
	"github.com/tkilaker/dronewire/internal/backfill"
	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/contracts"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/health"
	"github.com/tkilaker/dronewire/internal/related"
	"github.com/tkilaker/dronewire/internal/scraper"
)

const (
	requestTimeout  = 60 * time.Second
	cronTimeout     = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// Store is the persistence the HTTP handlers need
type Store interface {
	ListArticles(ctx context.Context, filter database.ArticleFilter) ([]*database.Article, int, error)
	GetArticleByID(ctx context.Context, id int64) (*database.Article, error)
	IncrementViewCount(ctx context.Context, id int64) error
	GetRecentArticles(ctx context.Context, limit int) ([]*database.Article, error)
	ListContracts(ctx context.Context, filter database.ContractFilter) ([]*database.Contract, int, error)
	CreateContactSubmission(ctx context.Context, c *database.ContactSubmission) error
	CreateSubscriber(ctx context.Context, s *database.Subscriber) error
	Unsubscribe(ctx context.Context, token string) error
	GetStats(ctx context.Context) (*database.Stats, error)
	ListFeeds(ctx context.Context) ([]*database.Feed, error)
	CreateFeed(ctx context.Context, feed *database.Feed) error
}

// RSSScraper polls feeds
type RSSScraper interface {
	Run(ctx context.Context) (scraper.Result, error)
	Progress() *scraper.ProgressTracker
}

// AIProcessor enriches pending articles
type AIProcessor interface {
	Run(ctx context.Context, limit int) (ai.Result, error)
}

// ContractScraper ingests contract awards
type ContractScraper interface {
	Run(ctx context.Context) (contracts.Result, error)
}

// AlertDispatcher sends instant alerts
type AlertDispatcher interface {
	Run(ctx context.Context) (alerts.Result, error)
}

// ImageBackfill re-extracts missing article images
type ImageBackfill interface {
	Run(ctx context.Context, limit int) (backfill.Result, error)
}

// RelatedFinder ranks related articles
type RelatedFinder interface {
	Related(ctx context.Context, id int64, limit int) ([]related.Scored, error)
}

// HealthChecker produces a health report
type HealthChecker interface {
	Run(ctx context.Context) health.Report
}

// Deps are the collaborators the server routes to
type Deps struct {
	Store     Store
	Scraper   RSSScraper
	Processor AIProcessor
	Contracts ContractScraper
	Alerts    AlertDispatcher
	Backfill  ImageBackfill
	Related   RelatedFinder
	Health    HealthChecker
	Mailer    alerts.Mailer
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	deps   Deps
	config *config.Config
	tasks  *TaskRunner
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new server instance
func New(deps Deps, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		config: cfg,
		tasks:  NewTaskRunner(logger),
		logger: logger,
		now:    time.Now,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	// Cron jobs run for minutes, so timeouts are set per group
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/rss.xml", s.handleRSS)
		r.Get("/health", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/articles", s.handleListArticles)
			r.Get("/articles/{id}", s.handleGetArticle)
			r.Post("/articles/{id}/view", s.handleArticleView)
			r.Get("/articles/{id}/related", s.handleRelated)

			r.Get("/contracts", s.handleListContracts)

			r.Post("/contact", s.handleContact)
			r.Post("/newsletter", s.handleSubscribe)
			r.Get("/newsletter/unsubscribe", s.handleUnsubscribe)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireSecret(func() string { return s.config.AdminSecret }))
				r.Get("/stats", s.handleAdminStats)
				r.Get("/feeds", s.handleAdminListFeeds)
				r.Post("/feeds", s.handleAdminCreateFeed)
				r.Get("/scrape/progress", s.handleScrapeProgress)
			})
		})
	})

	s.router.Route("/api/cron", func(r chi.Router) {
		r.Use(middleware.Timeout(cronTimeout))
		r.Use(s.requireSecret(func() string { return s.config.CronSecret }))
		r.Get("/scrape-rss", s.handleCronScrape)
		r.Get("/process-ai", s.handleCronProcess)
		r.Get("/scrape-contracts", s.handleCronContracts)
		r.Get("/send-alerts", s.handleCronAlerts)
		r.Get("/backfill-images", s.handleCronBackfill)
	})
}

// Router returns the Chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests and
// background tasks.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.tasks.Wait()
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// Wait blocks until background tasks started by handlers have finished
func (s *Server) Wait() {
	s.tasks.Wait()
}
