package store

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	p := writeConfig(t, "llm:\n  provider: NOOP\n")

	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Data.PriceProvider != "YAHOO" {
		t.Errorf("default price_provider = %s, want YAHOO", cfg.Data.PriceProvider)
	}
	if cfg.News.MaxArticles != 20 {
		t.Errorf("default max_articles = %d, want 20", cfg.News.MaxArticles)
	}
	if cfg.Analysis.LookbackDays != 365 {
		t.Errorf("default lookback_days = %d, want 365", cfg.Analysis.LookbackDays)
	}
	if cfg.Backtest.WindowCalls != 8 || cfg.Backtest.WindowSeconds != 60 || cfg.Backtest.MinCallGapSeconds != 6 {
		t.Errorf("backtest defaults = %d/%d/%d, want 8/60/6",
			cfg.Backtest.WindowCalls, cfg.Backtest.WindowSeconds, cfg.Backtest.MinCallGapSeconds)
	}
	if cfg.Monitor.Port != 8000 || cfg.Monitor.Store != "memory" {
		t.Errorf("monitor defaults = %d/%s, want 8000/memory", cfg.Monitor.Port, cfg.Monitor.Store)
	}
}

func TestLoadConfigInvalidProvider(t *testing.T) {
	p := writeConfig(t, "llm:\n  provider: GEMINI\n")

	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected error for unknown llm provider")
	}
}

func TestLoadConfigNewsRange(t *testing.T) {
	p := writeConfig(t, "news:\n  max_articles: 500\n")

	if _, err := LoadConfig(p); err == nil {
		t.Fatal("expected error for max_articles out of range")
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
}
