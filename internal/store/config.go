package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		Retries     int     `yaml:"retries"`
		RetryBaseMs int     `yaml:"retry_base_ms"`
	} `yaml:"llm"`
	Data struct {
		PriceProvider   string `yaml:"price_provider"`
		StatementsURL   string `yaml:"statements_url"`
		Exchange        string `yaml:"exchange"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	} `yaml:"data"`
	News struct {
		MaxArticles          int `yaml:"max_articles"`
		CacheTTLMinutes      int `yaml:"cache_ttl_minutes"`
		ScrapeTimeoutSeconds int `yaml:"scrape_timeout_seconds"`
	} `yaml:"news"`
	Analysis struct {
		LookbackDays     int `yaml:"lookback_days"`
		DefaultNewsCount int `yaml:"default_news_count"`
	} `yaml:"analysis"`
	Backtest struct {
		WindowCalls        int `yaml:"window_calls"`
		WindowSeconds      int `yaml:"window_seconds"`
		MinCallGapSeconds  int `yaml:"min_call_gap_seconds"`
		MaxRetries         int `yaml:"max_retries"`
		LookbackWindowDays int `yaml:"lookback_window_days"`
	} `yaml:"backtest"`
	Monitor struct {
		Port      int    `yaml:"port"`
		Store     string `yaml:"store"`
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"monitor"`
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'OPENAI', 'CLAUDE', or 'NOOP'", c.LLM.Provider)
	}
	switch c.Data.PriceProvider {
	case "YAHOO", "KITE", "STATIC":
	default:
		return fmt.Errorf("invalid data.price_provider '%s': must be 'YAHOO', 'KITE', or 'STATIC'", c.Data.PriceProvider)
	}
	if c.News.MaxArticles < 1 || c.News.MaxArticles > 100 {
		return fmt.Errorf("news.max_articles must be between 1-100, got %d", c.News.MaxArticles)
	}
	if c.Backtest.WindowCalls <= 0 {
		return fmt.Errorf("backtest.window_calls must be positive, got %d", c.Backtest.WindowCalls)
	}
	if c.Monitor.Store != "memory" && c.Monitor.Store != "redis" {
		return fmt.Errorf("monitor.store must be 'memory' or 'redis', got '%s'", c.Monitor.Store)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// DefaultConfig returns a config with every default applied, used when no
// config file is present.
func DefaultConfig() *Config {
	var c Config
	applyDefaults(&c)
	return &c
}

func applyDefaults(c *Config) {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "NOOP"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Retries == 0 {
		c.LLM.Retries = 3
	}
	if c.LLM.RetryBaseMs == 0 {
		c.LLM.RetryBaseMs = 500
	}
	if c.Data.PriceProvider == "" {
		c.Data.PriceProvider = "YAHOO"
	}
	if c.Data.Exchange == "" {
		c.Data.Exchange = "NSE"
	}
	if c.Data.CacheTTLMinutes == 0 {
		c.Data.CacheTTLMinutes = 60
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 20
	}
	if c.News.CacheTTLMinutes == 0 {
		c.News.CacheTTLMinutes = 60
	}
	if c.News.ScrapeTimeoutSeconds == 0 {
		c.News.ScrapeTimeoutSeconds = 30
	}
	if c.Analysis.LookbackDays == 0 {
		c.Analysis.LookbackDays = 365
	}
	if c.Analysis.DefaultNewsCount == 0 {
		c.Analysis.DefaultNewsCount = 20
	}
	if c.Backtest.WindowCalls == 0 {
		c.Backtest.WindowCalls = 8
	}
	if c.Backtest.WindowSeconds == 0 {
		c.Backtest.WindowSeconds = 60
	}
	if c.Backtest.MinCallGapSeconds == 0 {
		c.Backtest.MinCallGapSeconds = 6
	}
	if c.Backtest.MaxRetries == 0 {
		c.Backtest.MaxRetries = 3
	}
	if c.Backtest.LookbackWindowDays == 0 {
		c.Backtest.LookbackWindowDays = 30
	}
	if c.Monitor.Port == 0 {
		c.Monitor.Port = 8000
	}
	if c.Monitor.Store == "" {
		c.Monitor.Store = "memory"
	}
	if c.Monitor.RedisAddr == "" {
		c.Monitor.RedisAddr = "localhost:6379"
	}
}
