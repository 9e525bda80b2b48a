package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stock-advisor/internal/types"
)

func TestStaticProviderIsDeterministic(t *testing.T) {
	p := NewStaticProvider()
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	first, err := p.PriceHistory(context.Background(), "ACME", start, end)
	if err != nil {
		t.Fatalf("PriceHistory failed: %v", err)
	}
	second, err := p.PriceHistory(context.Background(), "ACME", start, end)
	if err != nil {
		t.Fatalf("PriceHistory failed: %v", err)
	}

	if len(first) == 0 {
		t.Fatal("Expected candles for a multi-month range")
	}
	if len(first) != len(second) {
		t.Fatalf("Expected identical lengths, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Expected identical candle at %d, got %+v vs %+v", i, first[i], second[i])
		}
	}

	for i := 1; i < len(first); i++ {
		if !first[i].Date.After(first[i-1].Date) {
			t.Fatal("Expected candles ordered oldest first")
		}
		if first[i].Date.Weekday() == time.Saturday || first[i].Date.Weekday() == time.Sunday {
			t.Fatal("Expected weekend days to be skipped")
		}
	}
}

func TestStaticProviderWindowsAgreeOnSharedDays(t *testing.T) {
	p := NewStaticProvider()
	d1 := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 2, 17, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	wide, _ := p.PriceHistory(context.Background(), "ACME", d1, d3)
	narrow, _ := p.PriceHistory(context.Background(), "ACME", d2, d3)

	byDate := make(map[string]types.Candle, len(wide))
	for _, c := range wide {
		byDate[c.Date.Format("2006-01-02")] = c
	}
	for _, c := range narrow {
		w, ok := byDate[c.Date.Format("2006-01-02")]
		if !ok {
			t.Fatalf("Expected %s in the wider window", c.Date.Format("2006-01-02"))
		}
		if w != c {
			t.Fatalf("Expected windows to agree on %s", c.Date.Format("2006-01-02"))
		}
	}
}

type countingProvider struct {
	calls atomic.Int32
}

func (c *countingProvider) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	c.calls.Add(1)
	return []types.Candle{{Date: start, Close: 100}}, nil
}

func TestPriceCacheServesRepeats(t *testing.T) {
	inner := &countingProvider{}
	cached := WithCache(inner, time.Minute)

	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)

	for i := 0; i < 3; i++ {
		if _, err := cached.PriceHistory(context.Background(), "ACME", start, end); err != nil {
			t.Fatalf("PriceHistory failed: %v", err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}

	// A different range misses the cache.
	if _, err := cached.PriceHistory(context.Background(), "ACME", start, end.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("PriceHistory failed: %v", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", got)
	}
}

func TestScreenerProviderSharesOneFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("ticker") != "ACME" {
			t.Errorf("Expected ticker query param, got %q", r.URL.Query().Get("ticker"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ticker": "ACME",
			"market_cap": 5e9,
			"metrics": [{"return_on_equity": 0.18, "pe_ratio": 21.5}],
			"line_items": [
				{"net_income": 100, "depreciation_and_amortization": 20, "capital_expenditure": 30, "working_capital": 50, "free_cash_flow": 90},
				{"net_income": 90, "depreciation_and_amortization": 18, "capital_expenditure": 28, "working_capital": 45, "free_cash_flow": 80}
			]
		}`))
	}))
	defer srv.Close()

	p := NewScreenerProvider(srv.URL, time.Minute)

	metrics, err := p.FinancialMetrics(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("FinancialMetrics failed: %v", err)
	}
	if metrics.ReturnOnEquity != 0.18 {
		t.Errorf("Expected ROE 0.18, got %f", metrics.ReturnOnEquity)
	}

	items, err := p.LineItems(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("LineItems failed: %v", err)
	}
	if len(items) != 2 || items[0].NetIncome != 100 {
		t.Errorf("Unexpected line items: %+v", items)
	}

	mc, err := p.MarketCap(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("MarketCap failed: %v", err)
	}
	if mc != 5e9 {
		t.Errorf("Expected market cap 5e9, got %f", mc)
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("Expected the three methods to share one fetch, got %d", got)
	}
}

func TestScreenerProviderRejectsEmptyMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ticker": "ACME", "metrics": []}`))
	}))
	defer srv.Close()

	p := NewScreenerProvider(srv.URL, time.Minute)
	if _, err := p.FinancialMetrics(context.Background(), "ACME"); err == nil {
		t.Error("Expected empty metrics to be rejected")
	}
}
