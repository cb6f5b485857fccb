package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tkilaker/dronewire/internal/ai"
	"github.com/tkilaker/dronewire/internal/alerts"
	"github.com/tkilaker/dronewire/internal/backfill"
	"github.com/tkilaker/dronewire/internal/config"
	"github.com/tkilaker/dronewire/internal/contracts"
	"github.com/tkilaker/dronewire/internal/database"
	"github.com/tkilaker/dronewire/internal/extractor"
	"github.com/tkilaker/dronewire/internal/health"
	"github.com/tkilaker/dronewire/internal/logging"
	"github.com/tkilaker/dronewire/internal/related"
	"github.com/tkilaker/dronewire/internal/scraper"
)

// app holds the wired components shared by every subcommand
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB

	browser   *extractor.BrowserFetcher
	extractor *extractor.Extractor
	mailer    alerts.Mailer

	scraper   *scraper.Scraper
	processor *ai.Processor
	contracts *contracts.Scraper
	alerts    *alerts.Dispatcher
	backfill  *backfill.Job
	related   *related.Service
	health    *health.Checker
}

func newApp(ctx context.Context) (*app, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to database")

	a := &app{cfg: cfg, logger: logger, db: db}

	// Content extraction, with headless rendering only when enabled
	var renderer extractor.Fetcher
	if cfg.BrowserFetch {
		a.browser, err = extractor.NewBrowserFetcher()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize browser: %w", err)
		}
		renderer = a.browser
	}
	a.extractor = extractor.New(cfg.Rules, nil, renderer, logger)

	// AI
	var llm ai.Completer
	if cfg.OpenAIKey != "" {
		llm = ai.NewChatClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel, nil)
	}
	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Contracts
	var source contracts.Searcher
	if cfg.SAMAPIKey != "" {
		source = contracts.NewClient("", cfg.SAMAPIKey, cfg.SAMDepartmentCode, nil)
	}

	// Email
	if cfg.ResendAPIKey != "" {
		a.mailer = alerts.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		logger.Warn("RESEND_API_KEY not set, emails will only be logged")
		a.mailer = alerts.NewLogMailer(logger)
	}

	a.scraper = scraper.New(db, cfg.Rules, scraper.Options{Logger: logger})
	a.processor = ai.NewProcessor(db, llm, cfg.Rules, ai.Options{
		Extractor: a.extractor,
		Embedder:  embedder,
		BatchSize: cfg.AIBatchSize,
		Logger:    logger,
	})
	a.contracts = contracts.NewScraper(db, source, cfg.Rules, logger)
	a.alerts = alerts.NewDispatcher(db, a.mailer, cfg.SiteURL, 0, logger)
	a.backfill = backfill.New(db, a.extractor, 0, logger)
	a.related = related.NewService(db)
	a.health = health.NewChecker(db, cfg.PipelineStaleAfter)

	return a, nil
}

// Close releases the browser and the database pool
func (a *app) Close() {
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.logger.Warn("failed to close browser", "error", err)
		}
	}
	a.db.Close()
}
