package news

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/store"
	"stock-advisor/internal/types"
)

// Service provides scraped news with caching
type Service struct {
	scraper *Scraper
	cache   *articleCache
	cfg     *ServiceConfig
}

var _ interfaces.NewsProvider = (*Service)(nil)

// ServiceConfig configures the news service
type ServiceConfig struct {
	MaxArticles    int           // Maximum articles to scrape per symbol
	CacheDuration  time.Duration // How long to cache scraped articles
	ScraperTimeout time.Duration // Timeout for scraping operations
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxArticles:    20,
		CacheDuration:  1 * time.Hour,
		ScraperTimeout: 30 * time.Second,
	}
}

// articleCache stores scraped articles temporarily
type articleCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	articles  []types.NewsArticle
	timestamp time.Time
}

// newArticleCache creates a new cache
func newArticleCache(ttl time.Duration) *articleCache {
	cache := &articleCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}

	// Start cleanup goroutine
	go cache.cleanupLoop()

	return cache
}

// get retrieves cached articles if valid
func (c *articleCache) get(key string) ([]types.NewsArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}

	return entry.articles, true
}

// set stores articles in cache
func (c *articleCache) set(key string, articles []types.NewsArticle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		articles:  articles,
		timestamp: time.Now(),
	}
}

// cleanupLoop periodically removes expired entries
func (c *articleCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup removes expired entries
func (c *articleCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, key)
		}
	}
}

// NewService creates a news service from the application config
func NewService(cfg *store.Config) *Service {
	svcCfg := DefaultServiceConfig()
	if cfg != nil {
		if cfg.News.MaxArticles > 0 {
			svcCfg.MaxArticles = cfg.News.MaxArticles
		}
		if cfg.News.CacheTTLMinutes > 0 {
			svcCfg.CacheDuration = time.Duration(cfg.News.CacheTTLMinutes) * time.Minute
		}
		if cfg.News.ScrapeTimeoutSeconds > 0 {
			svcCfg.ScraperTimeout = time.Duration(cfg.News.ScrapeTimeoutSeconds) * time.Second
		}
	}

	return &Service{
		scraper: NewScraper(svcCfg.ScraperTimeout),
		cache:   newArticleCache(svcCfg.CacheDuration),
		cfg:     svcCfg,
	}
}

// FetchNews returns recent articles for a ticker, or market-wide news when
// ticker is empty. An empty result with no error means the sources had
// nothing usable; callers degrade to their no-data behaviour.
func (s *Service) FetchNews(ctx context.Context, ticker string, limit int) ([]types.NewsArticle, error) {
	if limit <= 0 || limit > s.cfg.MaxArticles {
		limit = s.cfg.MaxArticles
	}

	key := fmt.Sprintf("%s|%d", ticker, limit)
	if articles, ok := s.cache.get(key); ok {
		logger.Debug(ctx, "News cache hit", "ticker", ticker, "articles", len(articles))
		return articles, nil
	}

	articles, err := s.scraper.ScrapeNews(ctx, ticker, limit)
	if err != nil {
		return nil, err
	}

	// Primary sources occasionally return nothing for thinly covered
	// symbols; Google News usually still has headlines.
	if len(articles) == 0 && ticker != "" {
		fallback, ferr := s.scraper.ScrapeGoogleNews(ctx, ticker, limit)
		if ferr != nil {
			logger.ErrorWithErr(ctx, "Google News fallback failed", ferr, "ticker", ticker)
		} else {
			articles = fallback
		}
	}

	if len(articles) > 0 {
		s.cache.set(key, articles)
	}

	return articles, nil
}
