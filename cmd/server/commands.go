package main

import (
	"context"
	"fmt"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/config"
	"foodlink/internal/core/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedDemo     bool
	sweepTimeout time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck
		defer config.CloseDatabase()

		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
		log.Info("database migration completed")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed food categories and, with --demo, demo accounts and donations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck
		defer config.CloseDatabase()

		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}

		svc := services.NewContainer(db, cfg, log)
		return config.NewSeeder(db, log.Named("seed"), svc.Clock).Run(seedDemo || cfg.Seed.DemoData)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue donations once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck
		defer config.CloseDatabase()

		ctx, cancel := context.WithTimeout(cmd.Context(), sweepTimeout)
		defer cancel()

		svc := services.NewContainer(db, cfg, log)
		expired := svc.Sweep.RunOnce(ctx)
		log.Info("sweep done", zap.Int("expired", expired))
		fmt.Fprintf(cmd.OutOrStdout(), "expired %d donation(s)\n", expired)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "Also create demo donor, NGO and donations")
	sweepCmd.Flags().DurationVar(&sweepTimeout, "timeout", 5*time.Minute, "Maximum time for the sweep")
}
