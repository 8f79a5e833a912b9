package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// External feeds
	Kite  KiteConfig
	Yahoo YahooConfig

	// Market session and valuation policy
	Market MarketConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KiteConfig holds Zerodha Kite ticker configuration.
// The streamed feed is optional; it stays disabled unless both the API key
// and an access token are present.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	WSURL       string
}

// Enabled reports whether the Kite WebSocket feed is configured.
func (k KiteConfig) Enabled() bool {
	return k.APIKey != "" && k.AccessToken != ""
}

// YahooConfig holds Yahoo Finance configuration for EOD backfill and
// quote polling.
type YahooConfig struct {
	BaseURL      string
	PollInterval time.Duration
	RateLimit    int // requests per second
}

// MarketConfig holds trading-session and quote-freshness policy.
type MarketConfig struct {
	Timezone      string
	FreshnessSecs int
}

// Freshness returns the live-quote freshness window as a duration.
func (m MarketConfig) Freshness() time.Duration {
	return time.Duration(m.FreshnessSecs) * time.Second
}

// Load reads configuration from environment variables, consulting .env
// files the same way across all commands.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Kite: KiteConfig{
			APIKey:      getEnv("KITE_API_KEY", ""),
			AccessToken: getEnv("KITE_ACCESS_TOKEN", ""),
			WSURL:       getEnv("KITE_WS_URL", "wss://ws.kite.trade"),
		},

		Yahoo: YahooConfig{
			BaseURL:      getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			PollInterval: getEnvAsDuration("YAHOO_POLL_INTERVAL", "60s"),
			RateLimit:    getEnvAsInt("YAHOO_RATE_LIMIT", 2),
		},

		Market: MarketConfig{
			Timezone:      getEnv("MARKET_TZ", "Asia/Kolkata"),
			FreshnessSecs: getEnvAsInt("LTP_FRESHNESS_SECONDS", 120),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Market.FreshnessSecs <= 0 {
		return fmt.Errorf("LTP_FRESHNESS_SECONDS must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
