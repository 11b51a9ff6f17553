package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
symbols:
  - name: Bitcoin
    ticker: BTC-USD
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Forecast.WindowSize != 60 {
		t.Errorf("window_size = %d, want 60", cfg.Forecast.WindowSize)
	}
	if cfg.Forecast.Epochs != 8 || cfg.Forecast.BatchSize != 32 {
		t.Errorf("training defaults = %d/%d, want 8/32", cfg.Forecast.Epochs, cfg.Forecast.BatchSize)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("cache backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Cache.HistoryTTL != time.Hour {
		t.Errorf("history ttl = %v, want 1h", cfg.Cache.HistoryTTL)
	}
	if cfg.MarketData.BaseURL == "" {
		t.Error("market data base url default missing")
	}
}

func TestLoadMissingEnvironment(t *testing.T) {
	if _, err := Load(writeConfig(t, "symbols:\n  - name: X\n    ticker: X-USD\n")); err == nil {
		t.Fatal("expected validation error for missing environment")
	}
}

func TestLoadEmptySymbols(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: test\n")); err == nil {
		t.Fatal("expected validation error for empty symbols")
	}
}

func TestLoadRedisWithoutAddr(t *testing.T) {
	body := minimalYAML + "cache:\n  backend: redis\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation error for redis without addr")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "ETH-USD, SOL-USD")
	t.Setenv("MARKET_DATA_URL", "http://localhost:9999")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.Symbols) != 2 || cfg.Symbols[0].Ticker != "ETH-USD" {
		t.Errorf("symbols override failed: %+v", cfg.Symbols)
	}
	if cfg.MarketData.BaseURL != "http://localhost:9999" {
		t.Errorf("base url override failed: %q", cfg.MarketData.BaseURL)
	}
}

func TestTickers(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := cfg.Tickers()
	if len(got) != 1 || got[0] != "BTC-USD" {
		t.Errorf("tickers = %v", got)
	}
}
