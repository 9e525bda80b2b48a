package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"stock-advisor/internal/types"
)

// StaticProvider serves deterministic synthetic data for offline runs and
// tests. Every value is a pure function of ticker and date, so overlapping
// requests always agree on shared days.
type StaticProvider struct{}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

var staticEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func staticNoise(parts ...string) float64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return float64(h.Sum64()%1_000_000) / 1_000_000.0
}

func (s *StaticProvider) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	base := 100.0 + 400.0*staticNoise(ticker)
	candles := make([]types.Candle, 0, 300)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		day := d.Format("2006-01-02")
		idx := d.Sub(staticEpoch).Hours() / 24

		// A slow seasonal wave plus per-day noise keeps the synthetic
		// series varied enough to light up every indicator.
		wave := 1 + 0.25*math.Sin(idx/40.0)
		noise := 1 + (staticNoise(ticker, day, "c")-0.5)*0.04
		closePx := base * wave * noise

		high := closePx * (1 + staticNoise(ticker, day, "h")*0.015)
		low := closePx * (1 - staticNoise(ticker, day, "l")*0.015)
		open := low + (high-low)*staticNoise(ticker, day, "o")
		volume := int64(500_000 + staticNoise(ticker, day, "v")*1_500_000)

		candles = append(candles, types.Candle{
			Date:   d,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}
	return candles, nil
}

func (s *StaticProvider) FinancialMetrics(ctx context.Context, ticker string) (types.FinancialMetrics, error) {
	n := staticNoise(ticker, "metrics")
	return types.FinancialMetrics{
		ReturnOnEquity:       0.10 + n*0.15,
		NetMargin:            0.12 + n*0.18,
		OperatingMargin:      0.14 + n*0.12,
		RevenueGrowth:        0.05 + n*0.12,
		EarningsGrowth:       0.06 + n*0.10,
		BookValueGrowth:      0.08 + n*0.06,
		CurrentRatio:         1.2 + n*1.0,
		DebtToEquity:         0.3 + n*0.4,
		FreeCashFlowPerShare: 4.0 + n*6.0,
		EarningsPerShare:     5.0 + n*8.0,
		PriceToEarnings:      18.0 + n*14.0,
		PriceToBook:          2.0 + n*2.5,
		PriceToSales:         3.0 + n*4.0,
	}, nil
}

func (s *StaticProvider) LineItems(ctx context.Context, ticker string) ([]types.LineItems, error) {
	n := staticNoise(ticker, "items")
	scale := 1e9 * (0.5 + n)
	current := types.LineItems{
		NetIncome:                   0.12 * scale,
		DepreciationAndAmortization: 0.04 * scale,
		CapitalExpenditure:          0.05 * scale,
		WorkingCapital:              0.20 * scale,
		FreeCashFlow:                0.10 * scale,
	}
	previous := types.LineItems{
		NetIncome:                   0.11 * scale,
		DepreciationAndAmortization: 0.04 * scale,
		CapitalExpenditure:          0.05 * scale,
		WorkingCapital:              0.18 * scale,
		FreeCashFlow:                0.09 * scale,
	}
	return []types.LineItems{current, previous}, nil
}

func (s *StaticProvider) MarketCap(ctx context.Context, ticker string) (float64, error) {
	return 1e10 * (0.5 + staticNoise(ticker, "cap")*4.0), nil
}

func (s *StaticProvider) FetchNews(ctx context.Context, ticker string, limit int) ([]types.NewsArticle, error) {
	subject := ticker
	if subject == "" {
		subject = "the market"
	}
	now := time.Now()
	canned := []types.NewsArticle{
		{
			Title:       fmt.Sprintf("Quarterly results for %s in line with expectations", subject),
			Content:     fmt.Sprintf("Analysts described the latest results from %s as steady, with revenue and margins broadly matching consensus.", subject),
			Source:      "static",
			PublishedAt: now.Add(-24 * time.Hour),
		},
		{
			Title:       fmt.Sprintf("Institutional flows into %s stay balanced", subject),
			Content:     fmt.Sprintf("Fund positioning around %s showed no decisive tilt this week, with inflows and outflows roughly offsetting.", subject),
			Source:      "static",
			PublishedAt: now.Add(-48 * time.Hour),
		},
		{
			Title:       fmt.Sprintf("Sector outlook for %s unchanged after policy review", subject),
			Content:     "The latest policy review left rate expectations intact, keeping the near-term outlook unchanged.",
			Source:      "static",
			PublishedAt: now.Add(-72 * time.Hour),
		},
	}
	if limit > 0 && limit < len(canned) {
		canned = canned[:limit]
	}
	return canned, nil
}
