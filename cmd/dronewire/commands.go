package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tkilaker/dronewire/internal/server"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withApp builds the application, runs fn and tears it down
func withApp(fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return fn(ctx, a)
	}
}

// printResult writes a job summary as indented JSON
func printResult(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, RSS feed and cron endpoints",
		RunE: withApp(func(ctx context.Context, a *app) error {
			if !skipMigrate {
				if err := a.db.Migrate(ctx); err != nil {
					return fmt.Errorf("failed to migrate: %w", err)
				}
			}

			srv := server.New(server.Deps{
				Store:     a.db,
				Scraper:   a.scraper,
				Processor: a.processor,
				Contracts: a.contracts,
				Alerts:    a.alerts,
				Backfill:  a.backfill,
				Related:   a.related,
				Health:    a.health,
				Mailer:    a.mailer,
			}, a.cfg, a.logger)

			return srv.Start(ctx, fmt.Sprintf(":%d", a.cfg.Port))
		}),
	}

	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply the schema on startup")
	return cmd
}

func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Poll every active RSS feed once",
		RunE: withApp(func(ctx context.Context, a *app) error {
			result, err := a.scraper.Run(ctx)
			if err != nil {
				return fmt.Errorf("scrape failed: %w", err)
			}
			return printResult(result)
		}),
	}
}

func processCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Summarize and publish pending articles",
		RunE: withApp(func(ctx context.Context, a *app) error {
			result, err := a.processor.Run(ctx, limit)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}
			return printResult(result)
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum articles to process (default AI_BATCH_SIZE)")
	return cmd
}

func contractsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contracts",
		Short: "Ingest recent contract awards from SAM.gov",
		RunE: withApp(func(ctx context.Context, a *app) error {
			result, err := a.contracts.Run(ctx)
			if err != nil {
				return fmt.Errorf("contract scrape failed: %w", err)
			}
			return printResult(result)
		}),
	}
}

func alertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Email instant alerts for high-confidence articles",
		RunE: withApp(func(ctx context.Context, a *app) error {
			result, err := a.alerts.Run(ctx)
			if err != nil {
				return fmt.Errorf("alert dispatch failed: %w", err)
			}
			return printResult(result)
		}),
	}
}

func backfillCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "backfill-images",
		Short: "Re-extract images for published articles that have none",
		RunE: withApp(func(ctx context.Context, a *app) error {
			result, err := a.backfill.Run(ctx, limit)
			if err != nil {
				return fmt.Errorf("backfill failed: %w", err)
			}
			return printResult(result)
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum articles to check (default 20)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: withApp(func(ctx context.Context, a *app) error {
			if err := a.db.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			a.logger.Info("schema applied")
			return nil
		}),
	}
}
