package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/adapters/http/routes"
	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/config"
	"foodlink/internal/core/services"
	"foodlink/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "foodlink/docs" // Swagger docs
)

// @title FoodLink API
// @version 1.0
// @description Surplus food donation and claim service

// @contact.name API Support

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var rootCmd = &cobra.Command{
	Use:   "foodlink",
	Short: "Surplus food donation service",
	Long: `FoodLink connects food donors with NGOs.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate, seed and start the HTTP server with the expiry sweep",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the database
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.IsDev())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := config.ConnectDatabase(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, log, db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	log.Info("database migration completed")

	// Seed categories, plus demo accounts when enabled
	svc := services.NewContainer(db, cfg, log)
	if err := config.NewSeeder(db, log.Named("seed"), svc.Clock).Run(cfg.Seed.DemoData); err != nil {
		log.Warn("failed to seed data", zap.Error(err))
	}

	// Expiry sweep
	if err := svc.Sweep.Start(); err != nil {
		return fmt.Errorf("failed to start expiry sweep: %w", err)
	}
	defer svc.Sweep.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "FoodLink API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, db, svc, cfg, log)

	// Graceful shutdown
	go gracefulShutdown(app, log)

	// Start server
	log.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
