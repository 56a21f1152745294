// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding stockfolio.db (always absolute)
	Port     int
	DevMode  bool
	LogLevel string
	LogFile  string

	Finnhub      FinnhubConfig
	AlphaVantage AlphaVantageConfig
	MarketData   MarketDataConfig
	Simulator    SimulatorConfig
	Watchlist    WatchlistConfig
	Backup       BackupConfig

	MaintenanceSchedule string
}

// FinnhubConfig configures the quote/profile/search provider
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
}

// AlphaVantageConfig configures the history/intraday/search provider
type AlphaVantageConfig struct {
	APIKey     string
	BaseURL    string
	DailyLimit int
}

// MarketDataConfig configures the live price cache
type MarketDataConfig struct {
	CacheTTL time.Duration
}

// SimulatorConfig configures the order processing simulator jobs
type SimulatorConfig struct {
	Enabled      bool
	SendSchedule string
	FillSchedule string
	FailureRate  int // percent
}

// WatchlistConfig configures the alert checker job
type WatchlistConfig struct {
	Schedule string
}

// BackupConfig configures S3-compatible database backups.
// Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	RetentionDays   int
}

// Enabled reports whether a backup bucket is configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// DatabasePath returns the SQLite file location
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "stockfolio.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("STOCKFOLIO_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		Finnhub: FinnhubConfig{
			APIKey:  getEnv("FINNHUB_API_KEY", ""),
			BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey:     getEnv("ALPHA_VANTAGE_API_KEY", "demo"),
			BaseURL:    getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			DailyLimit: getEnvAsInt("ALPHA_VANTAGE_DAILY_LIMIT", 25),
		},
		MarketData: MarketDataConfig{
			CacheTTL: getEnvAsDuration("MARKET_DATA_CACHE_TTL", 60*time.Second),
		},
		Simulator: SimulatorConfig{
			Enabled:      getEnvAsBool("SIMULATOR_ENABLED", true),
			SendSchedule: getEnv("SIMULATOR_SEND_SCHEDULE", "@every 10s"),
			FillSchedule: getEnv("SIMULATOR_FILL_SCHEDULE", "@every 15s"),
			FailureRate:  getEnvAsInt("SIMULATOR_FAILURE_RATE", 10),
		},
		Watchlist: WatchlistConfig{
			Schedule: getEnv("WATCHLIST_SCHEDULE", "@every 60s"),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Simulator.FailureRate < 0 || c.Simulator.FailureRate > 100 {
		return fmt.Errorf("simulator failure rate must be between 0 and 100, got %d", c.Simulator.FailureRate)
	}
	if c.MarketData.CacheTTL <= 0 {
		return fmt.Errorf("market data cache TTL must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
