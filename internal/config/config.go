package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Engine   EngineConfig
	Notify   NotifyConfig
	Seed     SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// EngineConfig holds settings of the donation and claim engines
type EngineConfig struct {
	Location     *time.Location
	SweepSpec    string
	TxMaxRetries int
}

// NotifyConfig holds outbound notification settings
type NotifyConfig struct {
	WebhookURL string
}

// SeedConfig controls optional seed data
type SeedConfig struct {
	DemoData bool
}

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional; production passes real environment variables
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the process environment
func FromEnv() (*Config, error) {
	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database, err := loadDatabaseConfig(appMode)
	if err != nil {
		return nil, err
	}

	engine, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}

	seedDemo, _ := strconv.ParseBool(getEnv("SEED_DEMO_DATA", "false"))

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: database,
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Engine:   engine,
		Notify:   NotifyConfig{WebhookURL: strings.TrimSpace(getEnv("NOTIFY_WEBHOOK_URL", ""))},
		Seed:     SeedConfig{DemoData: seedDemo},
	}

	// Set global config
	AppConfig = config

	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) (DatabaseConfig, error) {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	driver := strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", DriverMySQL)))
	defaultPort := "3306"
	switch driver {
	case DriverMySQL:
	case DriverPostgres:
		defaultPort = "5432"
	case DriverSQLite:
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid DB_DRIVER: '%s' (must be mysql, postgres or sqlite)", driver)
	}

	return DatabaseConfig{
		Driver:     driver,
		Host:       getEnv(prefix+"DB_HOST", "localhost"),
		Port:       getEnv(prefix+"DB_PORT", defaultPort),
		User:       getEnv(prefix+"DB_USER", "root"),
		Password:   getEnv(prefix+"DB_PASS", ""),
		DBName:     getEnv(prefix+"DB_NAME", "foodlink"),
		SQLitePath: getEnv("SQLITE_PATH", "foodlink.db"),
	}, nil
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadEngineConfig loads the business time zone, sweep schedule and retry budget
func loadEngineConfig() (EngineConfig, error) {
	tzName := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("invalid TIMEZONE: '%s': %w", tzName, err)
	}

	spec := getEnv("EXPIRY_SWEEP_SPEC", "@hourly")
	if _, err := cron.ParseStandard(spec); err != nil {
		return EngineConfig{}, fmt.Errorf("invalid EXPIRY_SWEEP_SPEC: '%s': %w", spec, err)
	}

	retries, err := strconv.Atoi(getEnv("TX_MAX_RETRIES", "3"))
	if err != nil || retries < 1 {
		return EngineConfig{}, fmt.Errorf("invalid TX_MAX_RETRIES: must be a positive integer")
	}

	return EngineConfig{
		Location:     loc,
		SweepSpec:    spec,
		TxMaxRetries: retries,
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		// Default production origins
		return "https://foodlink.example.org"
	}
	return origins
}
