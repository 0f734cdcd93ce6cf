package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var envKeys = []string{
	"DATA_PROVIDER", "ALPACA_API_KEY", "ALPACA_SECRET_KEY", "ALPACA_TRADING_URL", "POLYGON_API_KEY",
	"DATABASE_PATH", "JOURNAL_DIR", "SERVER_PORT", "CHAIN_FETCH_TIMEOUT", "CHAIN_MAX_AGE",
	"BATCH_CONCURRENCY", "DISCORD_WEBHOOK_URL", "LOG_LEVEL",
}

// clearEnv blanks every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALPACA_API_KEY", "key")
	t.Setenv("ALPACA_SECRET_KEY", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DataProvider != ProviderAlpaca {
		t.Errorf("DataProvider = %s", cfg.DataProvider)
	}
	if cfg.AlpacaTradingURL != "https://paper-api.alpaca.markets" {
		t.Errorf("AlpacaTradingURL = %s", cfg.AlpacaTradingURL)
	}
	if cfg.ServerPort != "4534" || cfg.DatabasePath != "./data/selections.db" || cfg.JournalDir != "./journal" {
		t.Errorf("unexpected paths %+v", cfg)
	}
	if cfg.ChainFetchTimeout != 15*time.Second || cfg.ChainMaxAge != 0 || cfg.BatchConcurrency != 4 {
		t.Errorf("unexpected tuning %+v", cfg)
	}
	if cfg.LogLevel != logrus.InfoLevel {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	for _, key := range envKeys {
		os.Unsetenv(key)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "DATA_PROVIDER=Polygon\n" +
		"POLYGON_API_KEY=poly\n" +
		"CHAIN_FETCH_TIMEOUT=5s\n" +
		"CHAIN_MAX_AGE=2m\n" +
		"BATCH_CONCURRENCY=8\n" +
		"LOG_LEVEL=debug\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataProvider != ProviderPolygon || cfg.PolygonAPIKey != "poly" {
		t.Errorf("provider = %s key = %s", cfg.DataProvider, cfg.PolygonAPIKey)
	}
	if cfg.ChainFetchTimeout != 5*time.Second || cfg.ChainMaxAge != 2*time.Minute || cfg.BatchConcurrency != 8 {
		t.Errorf("unexpected tuning %+v", cfg)
	}
	if cfg.LogLevel != logrus.DebugLevel {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing alpaca keys", map[string]string{}},
		{"missing polygon key", map[string]string{"DATA_PROVIDER": "polygon"}},
		{"unknown provider", map[string]string{"DATA_PROVIDER": "yahoo", "ALPACA_API_KEY": "k", "ALPACA_SECRET_KEY": "s"}},
		{"bad timeout", map[string]string{"ALPACA_API_KEY": "k", "ALPACA_SECRET_KEY": "s", "CHAIN_FETCH_TIMEOUT": "soon"}},
		{"bad concurrency", map[string]string{"ALPACA_API_KEY": "k", "ALPACA_SECRET_KEY": "s", "BATCH_CONCURRENCY": "0"}},
		{"negative max age", map[string]string{"ALPACA_API_KEY": "k", "ALPACA_SECRET_KEY": "s", "CHAIN_MAX_AGE": "-1m"}},
		{"bad log level", map[string]string{"ALPACA_API_KEY": "k", "ALPACA_SECRET_KEY": "s", "LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Error("expected error")
			}
		})
	}
}
