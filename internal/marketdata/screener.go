package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

// fundamentalsPayload is the wire shape of the statements endpoint.
// Metrics and line items are ordered newest first.
type fundamentalsPayload struct {
	Ticker    string                   `json:"ticker"`
	MarketCap float64                  `json:"market_cap"`
	Metrics   []types.FinancialMetrics `json:"metrics"`
	LineItems []types.LineItems        `json:"line_items"`
}

// ScreenerProvider fetches fundamentals from a statements HTTP endpoint.
// Responses are cached per ticker so the three interface methods share one
// upstream call.
type ScreenerProvider struct {
	client *resty.Client
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]screenerEntry
}

type screenerEntry struct {
	payload   fundamentalsPayload
	expiresAt time.Time
}

func NewScreenerProvider(baseURL string, cacheTTL time.Duration) *ScreenerProvider {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &ScreenerProvider{
		client:  client,
		ttl:     cacheTTL,
		entries: make(map[string]screenerEntry),
	}
}

func (s *ScreenerProvider) fetch(ctx context.Context, ticker string) (fundamentalsPayload, error) {
	s.mu.RLock()
	entry, ok := s.entries[ticker]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.payload, nil
	}

	_, span := trace.StartSpan(ctx, "screener-fundamentals")
	defer span.End()

	var payload fundamentalsPayload
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("ticker", ticker).
		SetResult(&payload).
		Get("/fundamentals")
	if err != nil {
		return fundamentalsPayload{}, fmt.Errorf("screener fundamentals for %s: %w", ticker, err)
	}
	if resp.IsError() {
		return fundamentalsPayload{}, fmt.Errorf("screener http %d for %s", resp.StatusCode(), ticker)
	}
	if len(payload.Metrics) == 0 {
		return fundamentalsPayload{}, fmt.Errorf("screener returned no metrics for %s", ticker)
	}

	s.mu.Lock()
	s.entries[ticker] = screenerEntry{payload: payload, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return payload, nil
}

func (s *ScreenerProvider) FinancialMetrics(ctx context.Context, ticker string) (types.FinancialMetrics, error) {
	payload, err := s.fetch(ctx, ticker)
	if err != nil {
		return types.FinancialMetrics{}, err
	}
	return payload.Metrics[0], nil
}

func (s *ScreenerProvider) LineItems(ctx context.Context, ticker string) ([]types.LineItems, error) {
	payload, err := s.fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(payload.LineItems) == 0 {
		return nil, fmt.Errorf("screener returned no line items for %s", ticker)
	}
	return payload.LineItems, nil
}

func (s *ScreenerProvider) MarketCap(ctx context.Context, ticker string) (float64, error) {
	payload, err := s.fetch(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return payload.MarketCap, nil
}
