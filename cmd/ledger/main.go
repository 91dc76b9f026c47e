// Package main is the entry point of the Academy Ledger service.
//
// Commands:
//   - serve:   run the HTTP API over the ledger
//   - migrate: apply, roll back or list PostgreSQL schema migrations
//   - token:   sign a caller token for an address (development and ops)
//   - events:  print committed events from the outbox
//
// All settings come from environment variables, see config.Config.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alem-hub/academy-ledger/config"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Academy Ledger: courses, XP and credentials on one ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger and installs it as slog's default.
func setupLogger(c *config.Config) *slog.Logger {
	log := logger.New(logger.Options{
		Level:     c.Observability.LogLevel,
		Format:    c.Observability.LogFormat,
		AddSource: c.Observability.LogAddSource,
	}).With("service", c.App.Name, "env", string(c.App.Environment))
	slog.SetDefault(log)
	return log
}
