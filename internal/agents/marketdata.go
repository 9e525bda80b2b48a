package agents

import (
	"context"
	"fmt"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

const (
	defaultNewsCount = 20
	maxNewsCount     = 100
	newsWindow       = 7 * 24 * time.Hour
)

// MarketDataStage seeds the run context with everything downstream agents
// read: price history, financial metrics, the two most recent line-item
// periods, market cap, ticker news and market-wide news. An empty price
// history is fatal for the run; every other provider failure degrades to
// an empty value with a warning.
type MarketDataStage struct {
	prices       interfaces.PriceProvider
	fundamentals interfaces.FundamentalsProvider
	news         interfaces.NewsProvider
}

func NewMarketDataStage(p interfaces.PriceProvider, f interfaces.FundamentalsProvider, n interfaces.NewsProvider) *MarketDataStage {
	return &MarketDataStage{prices: p, fundamentals: f, news: n}
}

func (s *MarketDataStage) Run(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	ticker, _ := workflow.ContextValue[string](snap, KeyTicker)
	start, _ := workflow.ContextValue[time.Time](snap, KeyStartDate)
	end, _ := workflow.ContextValue[time.Time](snap, KeyEndDate)
	count, ok := workflow.ContextValue[int](snap, KeyNewsCount)
	if !ok || count <= 0 {
		count = defaultNewsCount
	}
	if count > maxNewsCount {
		count = maxNewsCount
	}

	// The analysis window ends yesterday at the latest and spans one
	// trailing year unless the caller narrowed it.
	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	if end.IsZero() || end.After(yesterday) {
		end = yesterday
	}
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}

	candles, err := s.prices.PriceHistory(ctx, ticker, start, end)
	if err != nil {
		return workflow.Delta{}, fmt.Errorf("price history for %s: %w", ticker, err)
	}
	if len(candles) == 0 {
		return workflow.Delta{}, fmt.Errorf("no price history for %s between %s and %s",
			ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	metrics, err := s.fundamentals.FinancialMetrics(ctx, ticker)
	if err != nil {
		logger.Warn(ctx, "Financial metrics unavailable", "ticker", ticker, "error", err.Error())
		metrics = types.FinancialMetrics{}
	}

	items, err := s.fundamentals.LineItems(ctx, ticker)
	if err != nil {
		logger.Warn(ctx, "Line items unavailable", "ticker", ticker, "error", err.Error())
		items = nil
	}
	// Valuation compares a current and a previous period. A single
	// reported period is duplicated, none at all becomes two zero periods.
	switch len(items) {
	case 0:
		items = []types.LineItems{{}, {}}
	case 1:
		items = []types.LineItems{items[0], items[0]}
	}

	marketCap, err := s.fundamentals.MarketCap(ctx, ticker)
	if err != nil {
		logger.Warn(ctx, "Market cap unavailable", "ticker", ticker, "error", err.Error())
		marketCap = 0
	}

	articles, err := s.news.FetchNews(ctx, ticker, count)
	if err != nil {
		logger.Warn(ctx, "Ticker news unavailable", "ticker", ticker, "error", err.Error())
		articles = nil
	}
	marketNews, err := s.news.FetchNews(ctx, "", count)
	if err != nil {
		logger.Warn(ctx, "Market news unavailable", "error", err.Error())
		marketNews = nil
	}

	out := &workflow.StageOutput{
		Agent:      StageMarketData,
		Signal:     string(types.Neutral),
		Confidence: 1,
		Reasoning: fmt.Sprintf("Loaded %d candles, %d ticker articles and %d market articles for %s",
			len(candles), len(articles), len(marketNews), ticker),
		Details: map[string]any{
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
			"candles":    len(candles),
		},
	}
	return workflow.Delta{
		Output: out,
		Context: map[string]any{
			KeyStartDate:  start,
			KeyEndDate:    end,
			KeyPrices:     candles,
			KeyMetrics:    metrics,
			KeyLineItems:  items,
			KeyMarketCap:  marketCap,
			KeyNews:       articles,
			KeyNewsCount:  count,
			KeyMarketNews: marketNews,
		},
	}, nil
}
