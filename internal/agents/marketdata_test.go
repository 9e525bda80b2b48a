package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

type fakePrices struct {
	candles []types.Candle
	err     error
	ticker  string
	start   time.Time
	end     time.Time
}

func (f *fakePrices) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	f.ticker, f.start, f.end = ticker, start, end
	return f.candles, f.err
}

type fakeFundamentals struct {
	metrics    types.FinancialMetrics
	metricsErr error
	items      []types.LineItems
	itemsErr   error
	marketCap  float64
	capErr     error
}

func (f *fakeFundamentals) FinancialMetrics(ctx context.Context, ticker string) (types.FinancialMetrics, error) {
	return f.metrics, f.metricsErr
}

func (f *fakeFundamentals) LineItems(ctx context.Context, ticker string) ([]types.LineItems, error) {
	return f.items, f.itemsErr
}

func (f *fakeFundamentals) MarketCap(ctx context.Context, ticker string) (float64, error) {
	return f.marketCap, f.capErr
}

type fakeNews struct {
	articles []types.NewsArticle
	err      error
	queries  []string
	limits   []int
}

func (f *fakeNews) FetchNews(ctx context.Context, ticker string, limit int) ([]types.NewsArticle, error) {
	f.queries = append(f.queries, ticker)
	f.limits = append(f.limits, limit)
	return f.articles, f.err
}

func runMarketData(t *testing.T, prices *fakePrices, fundamentals *fakeFundamentals, news *fakeNews, seed map[string]any) workflow.Delta {
	t.Helper()
	stage := NewMarketDataStage(prices, fundamentals, news)
	delta, err := stage.Run(context.Background(), testSnapshot(nil, seed))
	if err != nil {
		t.Fatalf("Market data stage failed: %v", err)
	}
	return delta
}

func TestMarketDataSeedsContext(t *testing.T) {
	prices := &fakePrices{candles: candlesFromCloses(100, 101, 102)}
	fundamentals := &fakeFundamentals{
		metrics:   types.FinancialMetrics{ReturnOnEquity: 0.2},
		items:     []types.LineItems{{NetIncome: 100}, {NetIncome: 90}},
		marketCap: 5000,
	}
	news := &fakeNews{articles: []types.NewsArticle{freshArticle("a")}}
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	delta := runMarketData(t, prices, fundamentals, news, map[string]any{
		KeyTicker:    "AAPL",
		KeyStartDate: start,
		KeyEndDate:   end,
		KeyNewsCount: 5,
	})

	if prices.ticker != "AAPL" || !prices.start.Equal(start) || !prices.end.Equal(end) {
		t.Errorf("Provider called with %s %s %s", prices.ticker, prices.start, prices.end)
	}
	if got := delta.Context[KeyPrices].([]types.Candle); len(got) != 3 {
		t.Errorf("Expected 3 candles in context, got %d", len(got))
	}
	if got := delta.Context[KeyMetrics].(types.FinancialMetrics); got.ReturnOnEquity != 0.2 {
		t.Errorf("Expected metrics in context, got %+v", got)
	}
	if got := delta.Context[KeyMarketCap].(float64); got != 5000 {
		t.Errorf("Expected market cap 5000, got %v", got)
	}
	if got := delta.Context[KeyNewsCount].(int); got != 5 {
		t.Errorf("Expected news count 5, got %v", got)
	}
	// One ticker query, one market-wide query.
	if len(news.queries) != 2 || news.queries[0] != "AAPL" || news.queries[1] != "" {
		t.Errorf("Unexpected news queries %v", news.queries)
	}

	out := delta.Output
	if out.Agent != StageMarketData || out.Signal != string(types.Neutral) || out.Confidence != 1 {
		t.Errorf("Unexpected output header %s %s %v", out.Agent, out.Signal, out.Confidence)
	}
	if out.Details["candles"].(int) != 3 {
		t.Errorf("Expected candle count in details, got %v", out.Details["candles"])
	}
}

func TestMarketDataDefaultsDates(t *testing.T) {
	prices := &fakePrices{candles: candlesFromCloses(100)}
	runMarketData(t, prices, &fakeFundamentals{}, &fakeNews{}, map[string]any{KeyTicker: "AAPL"})

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	if !prices.end.Equal(yesterday) {
		t.Errorf("Expected end clamped to %s, got %s", yesterday, prices.end)
	}
	if !prices.start.Equal(yesterday.AddDate(-1, 0, 0)) {
		t.Errorf("Expected one trailing year, got start %s", prices.start)
	}
}

func TestMarketDataClampsFutureEnd(t *testing.T) {
	prices := &fakePrices{candles: candlesFromCloses(100)}
	future := time.Now().UTC().AddDate(0, 0, 10)
	runMarketData(t, prices, &fakeFundamentals{}, &fakeNews{}, map[string]any{
		KeyTicker:  "AAPL",
		KeyEndDate: future,
	})

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	if !prices.end.Equal(yesterday) {
		t.Errorf("Expected future end clamped to %s, got %s", yesterday, prices.end)
	}
}

func TestMarketDataClampsNewsCount(t *testing.T) {
	news := &fakeNews{}
	runMarketData(t, &fakePrices{candles: candlesFromCloses(100)}, &fakeFundamentals{}, news,
		map[string]any{KeyTicker: "AAPL", KeyNewsCount: 1000})
	if news.limits[0] != maxNewsCount {
		t.Errorf("Expected count clamped to %d, got %d", maxNewsCount, news.limits[0])
	}

	news = &fakeNews{}
	runMarketData(t, &fakePrices{candles: candlesFromCloses(100)}, &fakeFundamentals{}, news,
		map[string]any{KeyTicker: "AAPL", KeyNewsCount: -3})
	if news.limits[0] != defaultNewsCount {
		t.Errorf("Expected default count %d, got %d", defaultNewsCount, news.limits[0])
	}
}

func TestMarketDataLineItemPadding(t *testing.T) {
	single := &fakeFundamentals{items: []types.LineItems{{NetIncome: 100, WorkingCapital: 50}}}
	delta := runMarketData(t, &fakePrices{candles: candlesFromCloses(100)}, single, &fakeNews{},
		map[string]any{KeyTicker: "AAPL"})
	items := delta.Context[KeyLineItems].([]types.LineItems)
	if len(items) != 2 {
		t.Fatalf("Expected single period duplicated, got %d", len(items))
	}
	if items[0] != items[1] {
		t.Error("Expected both periods identical")
	}

	none := &fakeFundamentals{}
	delta = runMarketData(t, &fakePrices{candles: candlesFromCloses(100)}, none, &fakeNews{},
		map[string]any{KeyTicker: "AAPL"})
	items = delta.Context[KeyLineItems].([]types.LineItems)
	if len(items) != 2 || items[0] != (types.LineItems{}) {
		t.Errorf("Expected two zero periods, got %v", items)
	}
}

func TestMarketDataEmptyPricesIsFatal(t *testing.T) {
	stage := NewMarketDataStage(&fakePrices{}, &fakeFundamentals{}, &fakeNews{})
	_, err := stage.Run(context.Background(), testSnapshot(nil, map[string]any{KeyTicker: "AAPL"}))
	if err == nil {
		t.Fatal("Expected error for empty price history")
	}

	stage = NewMarketDataStage(&fakePrices{err: errors.New("api down")}, &fakeFundamentals{}, &fakeNews{})
	_, err = stage.Run(context.Background(), testSnapshot(nil, map[string]any{KeyTicker: "AAPL"}))
	if err == nil {
		t.Fatal("Expected error for price provider failure")
	}
}

func TestMarketDataDegradesOnOtherFailures(t *testing.T) {
	fundamentals := &fakeFundamentals{
		metricsErr: errors.New("down"),
		itemsErr:   errors.New("down"),
		capErr:     errors.New("down"),
	}
	news := &fakeNews{err: errors.New("down")}
	delta := runMarketData(t, &fakePrices{candles: candlesFromCloses(100, 101)}, fundamentals, news,
		map[string]any{KeyTicker: "AAPL"})

	if got := delta.Context[KeyMetrics].(types.FinancialMetrics); got != (types.FinancialMetrics{}) {
		t.Errorf("Expected zero metrics on failure, got %+v", got)
	}
	if got := delta.Context[KeyMarketCap].(float64); got != 0 {
		t.Errorf("Expected zero market cap, got %v", got)
	}
	if got := delta.Context[KeyLineItems].([]types.LineItems); len(got) != 2 {
		t.Errorf("Expected padded line items, got %d", len(got))
	}
	if got := delta.Context[KeyNews].([]types.NewsArticle); got != nil {
		t.Errorf("Expected nil news, got %v", got)
	}
	if delta.Output == nil {
		t.Fatal("Expected output despite degraded providers")
	}
}
