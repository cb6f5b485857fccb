package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "dronewire",
		Short:         "Dronewire - counter-UAS news aggregation and alerting",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(contractsCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(backfillCmd())
	rootCmd.AddCommand(migrateCmd())

	return rootCmd.Execute()
}
