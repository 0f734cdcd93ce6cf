package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Data providers
const (
	ProviderAlpaca  = "alpaca"
	ProviderPolygon = "polygon"
)

// Config holds the server configuration
type Config struct {
	DataProvider string

	AlpacaAPIKey     string
	AlpacaSecretKey  string
	AlpacaTradingURL string
	PolygonAPIKey    string

	DatabasePath string
	JournalDir   string
	ServerPort   string

	ChainFetchTimeout time.Duration
	ChainMaxAge       time.Duration
	BatchConcurrency  int

	DiscordWebhookURL string
	LogLevel          logrus.Level
}

// Load reads .env files (if present) and then the process environment
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		DataProvider:      strings.ToLower(GetEnv("DATA_PROVIDER", ProviderAlpaca)),
		AlpacaAPIKey:      os.Getenv("ALPACA_API_KEY"),
		AlpacaSecretKey:   os.Getenv("ALPACA_SECRET_KEY"),
		AlpacaTradingURL:  GetEnv("ALPACA_TRADING_URL", "https://paper-api.alpaca.markets"),
		PolygonAPIKey:     os.Getenv("POLYGON_API_KEY"),
		DatabasePath:      GetEnv("DATABASE_PATH", "./data/selections.db"),
		JournalDir:        GetEnv("JOURNAL_DIR", "./journal"),
		ServerPort:        GetEnv("SERVER_PORT", "4534"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
	}

	var err error
	if cfg.ChainFetchTimeout, err = durationEnv("CHAIN_FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ChainMaxAge, err = durationEnv("CHAIN_MAX_AGE", 0); err != nil {
		return nil, err
	}
	if cfg.BatchConcurrency, err = intEnv("BATCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = logrus.ParseLevel(GetEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected provider has credentials
func (c *Config) Validate() error {
	switch c.DataProvider {
	case ProviderAlpaca:
		if c.AlpacaAPIKey == "" || c.AlpacaSecretKey == "" {
			return errors.New("ALPACA_API_KEY and ALPACA_SECRET_KEY are required for the alpaca provider")
		}
	case ProviderPolygon:
		if c.PolygonAPIKey == "" {
			return errors.New("POLYGON_API_KEY is required for the polygon provider")
		}
	default:
		return fmt.Errorf("unknown DATA_PROVIDER %q", c.DataProvider)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	if c.ChainMaxAge < 0 {
		return fmt.Errorf("CHAIN_MAX_AGE must not be negative, got %s", c.ChainMaxAge)
	}
	return nil
}

// GetEnv returns the environment value for key, or defaultValue when unset
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
