package main

import (
	"fmt"

	"github.com/AlemzhanJ/chooseApp/internal/config"
	"github.com/AlemzhanJ/chooseApp/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations from database/migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return nil
		},
	}
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run migrations, then database/seeds/*.sql",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			db, err := database.Open(cfg.DSN())
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if err := database.RunSeeds(db); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			return nil
		},
	}
}
