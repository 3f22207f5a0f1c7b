package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/socialgate/internal/config"
	"github.com/abdulachik/socialgate/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the sqlite schema used for OAuth state and upload checkpoints.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForStore(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if cfg.StoreDriver != "sqlite" {
		slog.Info("nothing to migrate", "driver", cfg.StoreDriver)
		return nil
	}

	slog.Info("connecting to database", "path", cfg.DatabasePath)
	s, err := store.NewSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("migrations completed successfully")
	return nil
}
