package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tinoosan/finance/internal/config"
	"github.com/tinoosan/finance/internal/storage/postgres"
)

func migrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded Postgres schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New(config.KeyDatabaseURL + " is required for migrate")
			}
			direction := "up"
			if down {
				direction = "down"
			}
			slog.Info("running migrations", "direction", direction)
			if err := postgres.Migrate(cfg.DatabaseURL, down); err != nil {
				return err
			}
			slog.Info("migrations complete", "direction", direction)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert every migration instead of applying them")
	return cmd
}
