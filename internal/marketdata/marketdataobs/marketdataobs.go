package marketdataobs

import (
	"context"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

type observablePriceProvider struct {
	provider interfaces.PriceProvider
}

var _ interfaces.PriceProvider = (*observablePriceProvider)(nil)

// Wrap wraps a price provider with observability middleware
func Wrap(provider interfaces.PriceProvider) interfaces.PriceProvider {
	return &observablePriceProvider{
		provider: provider,
	}
}

func (op *observablePriceProvider) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.PriceHistory")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching price history",
		"ticker", ticker,
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
	)

	candles, err := op.provider.PriceHistory(ctx, ticker, start, end)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Price history fetch failed", err,
			"ticker", ticker,
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Price history fetched",
		"ticker", ticker,
		"candles", len(candles),
	)

	return candles, nil
}

type observableFundamentalsProvider struct {
	provider interfaces.FundamentalsProvider
}

var _ interfaces.FundamentalsProvider = (*observableFundamentalsProvider)(nil)

// WrapFundamentals wraps a fundamentals provider with observability middleware
func WrapFundamentals(provider interfaces.FundamentalsProvider) interfaces.FundamentalsProvider {
	return &observableFundamentalsProvider{
		provider: provider,
	}
}

func (of *observableFundamentalsProvider) FinancialMetrics(ctx context.Context, ticker string) (types.FinancialMetrics, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.FinancialMetrics")
	defer span.End()

	metrics, err := of.provider.FinancialMetrics(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Financial metrics fetch failed", err, "ticker", ticker)
		return types.FinancialMetrics{}, err
	}

	logger.DebugSkip(ctx, 1, "Financial metrics fetched", "ticker", ticker)
	return metrics, nil
}

func (of *observableFundamentalsProvider) LineItems(ctx context.Context, ticker string) ([]types.LineItems, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.LineItems")
	defer span.End()

	items, err := of.provider.LineItems(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Line items fetch failed", err, "ticker", ticker)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Line items fetched", "ticker", ticker, "periods", len(items))
	return items, nil
}

func (of *observableFundamentalsProvider) MarketCap(ctx context.Context, ticker string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "marketdata.MarketCap")
	defer span.End()

	mc, err := of.provider.MarketCap(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market cap fetch failed", err, "ticker", ticker)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Market cap fetched", "ticker", ticker, "market_cap", mc)
	return mc, nil
}
