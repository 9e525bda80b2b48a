package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/types"
)

// cachedPriceProvider memoizes PriceHistory responses per exact request.
// The backtest driver re-reads heavily overlapping windows, so this keeps
// repeat traffic off the upstream source.
type cachedPriceProvider struct {
	inner interfaces.PriceProvider
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]priceEntry
}

type priceEntry struct {
	candles   []types.Candle
	expiresAt time.Time
}

var _ interfaces.PriceProvider = (*cachedPriceProvider)(nil)

// WithCache wraps a price provider with a TTL response cache.
func WithCache(inner interfaces.PriceProvider, ttl time.Duration) interfaces.PriceProvider {
	c := &cachedPriceProvider{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]priceEntry),
	}
	go c.cleanupRoutine()
	return c
}

func (c *cachedPriceProvider) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	key := fmt.Sprintf("%s|%s|%s", ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.candles, nil
	}

	candles, err := c.inner.PriceHistory(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = priceEntry{candles: candles, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return candles, nil
}

func (c *cachedPriceProvider) cleanupRoutine() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
