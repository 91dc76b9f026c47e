package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *postgres.Migrator) error {
			return m.Migrate(cmd.Context())
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *postgres.Migrator) error {
			return m.Rollback(cmd.Context())
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *postgres.Migrator) error {
			migrations, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, mg := range migrations {
				state := "pending"
				if mg.IsApplied {
					state = "applied " + mg.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%4d  %-32s  %s\n", mg.Version, mg.Name, state)
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func withMigrator(cmd *cobra.Command, fn func(m *postgres.Migrator) error) error {
	log := setupLogger(cfg)
	conn, err := openDatabase(cmd.Context(), cfg.Database.ConnectTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := fn(postgres.NewMigrator(conn)); err != nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), err)
	}
	log.Info("migration command completed", "command", cmd.CommandPath())
	return nil
}
