// Package config handles loading and validating configuration from
// environment variables and the YAML watchlist file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the watcher.
type Config struct {
	// Solana
	RPCEndpoint string
	WSEndpoint  string
	Programs    []string

	// Watch loop
	PollInterval   time.Duration
	SignalCooldown time.Duration
	Watchlist      string // path to the YAML watchlist

	// Execution
	VenueOrder       []string
	VenueTimeout     time.Duration
	MaxVenueAttempts int

	// Notifications
	TelegramToken  string
	TelegramChatID string

	// Storage
	PostgresDSN   string // empty selects the in-memory stores
	ClickhouseDSN string // empty disables snapshot archiving

	// Metrics
	MetricsAddr string
}

// Load reads configuration from environment variables with fallback to a
// .env file. Priority order: environment variables > .env file > defaults.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		RPCEndpoint: getEnv("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		WSEndpoint:  getEnv("SOLANA_WS_ENDPOINT", ""),
		Programs:    getEnvList("WATCH_PROGRAMS", nil),

		PollInterval:   time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)) * time.Second,
		SignalCooldown: time.Duration(getEnvInt("SIGNAL_COOLDOWN_SECONDS", 300)) * time.Second,
		Watchlist:      getEnv("WATCHLIST_PATH", "watchlist.yaml"),

		VenueOrder:       getEnvList("VENUE_ORDER", []string{"jupiter", "raydium"}),
		VenueTimeout:     time.Duration(getEnvInt("VENUE_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxVenueAttempts: getEnvInt("MAX_VENUE_ATTEMPTS", 3),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.SignalCooldown < 0 {
		return fmt.Errorf("SIGNAL_COOLDOWN_SECONDS must not be negative")
	}
	if c.MaxVenueAttempts < 1 {
		return fmt.Errorf("MAX_VENUE_ATTEMPTS must be at least 1")
	}
	if len(c.VenueOrder) == 0 {
		return fmt.Errorf("VENUE_ORDER must name at least one venue")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// MaskedTelegramToken returns the bot token with most characters hidden for
// logging.
func (c *Config) MaskedTelegramToken() string {
	return maskSecret(c.TelegramToken)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a
// default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
