package interfaces

import (
	"context"
	"time"

	"stock-advisor/internal/types"
)

// PriceProvider returns ordered daily candles for a ticker, oldest first.
type PriceProvider interface {
	PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error)
}

// FundamentalsProvider returns financial ratios and the two most recent
// reporting periods' line items (newest first). A provider that only has one
// period returns a single element; callers duplicate it.
type FundamentalsProvider interface {
	FinancialMetrics(ctx context.Context, ticker string) (types.FinancialMetrics, error)
	LineItems(ctx context.Context, ticker string) ([]types.LineItems, error)
	MarketCap(ctx context.Context, ticker string) (float64, error)
}

// NewsProvider returns recent articles for a ticker, and market-wide
// financial news when ticker is empty.
type NewsProvider interface {
	FetchNews(ctx context.Context, ticker string, limit int) ([]types.NewsArticle, error)
}
