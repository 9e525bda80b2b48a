package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-advisor/internal/store"
	"stock-advisor/internal/types"
)

// scriptedAdvisor fails its first failFirst calls, then serves decisions in
// order, then holds.
type scriptedAdvisor struct {
	decisions []types.Decision
	failFirst int
	calls     int
	requests  []types.RunRequest
}

func (s *scriptedAdvisor) Run(ctx context.Context, req types.RunRequest) (types.Decision, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if s.calls <= s.failFirst {
		return types.Decision{}, errors.New("provider quota exhausted")
	}
	idx := s.calls - s.failFirst - 1
	if idx < len(s.decisions) {
		return s.decisions[idx], nil
	}
	return types.Decision{Action: types.Hold}, nil
}

type flatPrices struct {
	price float64
}

func (f flatPrices) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	var candles []types.Candle
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		candles = append(candles, types.Candle{Date: d, Open: f.price, High: f.price, Low: f.price, Close: f.price, Volume: 1000})
	}
	return candles, nil
}

type noPrices struct{}

func (noPrices) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	return nil, nil
}

func testConfig() *store.Config {
	cfg := &store.Config{}
	cfg.Backtest.WindowCalls = 1000
	cfg.Backtest.WindowSeconds = 0
	cfg.Backtest.MinCallGapSeconds = 0
	cfg.Backtest.MaxRetries = 3
	cfg.Backtest.LookbackWindowDays = 30
	return cfg
}

func weekParams() Params {
	return Params{
		Ticker:         "AAPL",
		StartDate:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		InitialCapital: 10000,
		NewsCount:      5,
	}
}

func buy(q int) types.Decision  { return types.Decision{Action: types.Buy, Quantity: q} }
func sell(q int) types.Decision { return types.Decision{Action: types.Sell, Quantity: q} }
func hold() types.Decision      { return types.Decision{Action: types.Hold} }

func TestBacktesterSimulatesBusinessDays(t *testing.T) {
	advisor := &scriptedAdvisor{decisions: []types.Decision{
		buy(10), hold(), sell(5), buy(1000), sell(1000),
	}}
	bt, err := New(advisor, flatPrices{price: 100}, testConfig(), weekParams())
	if err != nil {
		t.Fatalf("Expected backtester construction to succeed, got %v", err)
	}
	bt.backoffBase = time.Millisecond

	result, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected backtest to succeed, got %v", err)
	}

	// Feb 28 and Mar 1 2026 fall on a weekend.
	if len(result.Days) != 5 {
		t.Fatalf("Expected 5 trading days, got %d", len(result.Days))
	}
	first := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !result.Days[0].Date.Equal(first) {
		t.Errorf("Expected the first trading day on %s, got %s", first.Format("2006-01-02"), result.Days[0].Date.Format("2006-01-02"))
	}

	wantExecuted := []int{10, 0, 5, 95, 100}
	wantCash := []float64{9000, 9000, 9500, 0, 10000}
	wantStock := []int{10, 10, 5, 100, 0}
	for i, day := range result.Days {
		if day.Executed != wantExecuted[i] {
			t.Errorf("Day %d: Expected executed %d, got %d", i, wantExecuted[i], day.Executed)
		}
		if day.Cash != wantCash[i] {
			t.Errorf("Day %d: Expected cash %.2f, got %.2f", i, wantCash[i], day.Cash)
		}
		if day.Stock != wantStock[i] {
			t.Errorf("Day %d: Expected stock %d, got %d", i, wantStock[i], day.Stock)
		}
		if day.Value != 10000 {
			t.Errorf("Day %d: Expected flat value 10000, got %.2f", i, day.Value)
		}
		if day.Degraded {
			t.Errorf("Day %d: Expected a live decision, got the fallback", i)
		}
	}

	if advisor.calls != 5 {
		t.Errorf("Expected 5 engine calls, got %d", advisor.calls)
	}
	wantLookback := first.AddDate(0, 0, -30)
	if !advisor.requests[0].StartDate.Equal(wantLookback) {
		t.Errorf("Expected lookback start %s, got %s", wantLookback.Format("2006-01-02"), advisor.requests[0].StartDate.Format("2006-01-02"))
	}
	if !advisor.requests[0].EndDate.Equal(first) {
		t.Errorf("Expected day %s as end date, got %s", first.Format("2006-01-02"), advisor.requests[0].EndDate.Format("2006-01-02"))
	}
	// The third day's request sees the portfolio after the first buy.
	if advisor.requests[2].Portfolio.Cash != 9000 || advisor.requests[2].Portfolio.Stock != 10 {
		t.Errorf("Expected portfolio {9000, 10} on day 3, got {%.2f, %d}",
			advisor.requests[2].Portfolio.Cash, advisor.requests[2].Portfolio.Stock)
	}

	perf := result.Performance
	if perf.TotalReturn != 0 {
		t.Errorf("Expected zero total return on a flat price, got %v", perf.TotalReturn)
	}
	if perf.SharpeRatio != 0 {
		t.Errorf("Expected zero sharpe on constant value, got %v", perf.SharpeRatio)
	}
	if perf.MaxDrawdown != 0 {
		t.Errorf("Expected zero drawdown, got %v", perf.MaxDrawdown)
	}
	if perf.TradingDays != 5 {
		t.Errorf("Expected 5 trading days in performance, got %d", perf.TradingDays)
	}
}

func TestBacktesterRetriesThenUsesDecision(t *testing.T) {
	advisor := &scriptedAdvisor{failFirst: 2, decisions: []types.Decision{buy(10)}}
	params := weekParams()
	params.StartDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	params.EndDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	bt, err := New(advisor, flatPrices{price: 100}, testConfig(), params)
	if err != nil {
		t.Fatalf("Expected backtester construction to succeed, got %v", err)
	}
	bt.backoffBase = time.Millisecond

	result, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected backtest to succeed, got %v", err)
	}
	if advisor.calls != 3 {
		t.Errorf("Expected 3 attempts for the day, got %d", advisor.calls)
	}
	if len(result.Days) != 1 {
		t.Fatalf("Expected 1 trading day, got %d", len(result.Days))
	}
	if result.Days[0].Executed != 10 {
		t.Errorf("Expected the third attempt's buy to fill 10, got %d", result.Days[0].Executed)
	}
	if result.Days[0].Degraded {
		t.Error("Expected a live decision after retries, got the fallback")
	}
}

func TestBacktesterFallsBackToHoldAfterRetries(t *testing.T) {
	advisor := &scriptedAdvisor{failFirst: 100}
	params := weekParams()
	params.StartDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	params.EndDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	bt, err := New(advisor, flatPrices{price: 100}, testConfig(), params)
	if err != nil {
		t.Fatalf("Expected backtester construction to succeed, got %v", err)
	}
	bt.backoffBase = time.Millisecond

	result, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected backtest to succeed, got %v", err)
	}
	if advisor.calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", advisor.calls)
	}
	day := result.Days[0]
	if day.Action != types.Hold || day.Executed != 0 {
		t.Errorf("Expected the hold fallback, got %s with %d executed", day.Action, day.Executed)
	}
	if !day.Degraded {
		t.Error("Expected the day flagged as degraded")
	}
	if day.Value != 10000 {
		t.Errorf("Expected an untouched portfolio, got value %.2f", day.Value)
	}
}

func TestBacktesterSkipsDaysWithoutPrices(t *testing.T) {
	advisor := &scriptedAdvisor{decisions: []types.Decision{buy(10)}}
	params := weekParams()
	params.StartDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	params.EndDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	bt, err := New(advisor, noPrices{}, testConfig(), params)
	if err != nil {
		t.Fatalf("Expected backtester construction to succeed, got %v", err)
	}
	bt.backoffBase = time.Millisecond

	result, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected backtest to succeed, got %v", err)
	}
	if len(result.Days) != 0 {
		t.Errorf("Expected no trading days without prices, got %d", len(result.Days))
	}
	if result.Performance.TradingDays != 0 {
		t.Errorf("Expected no trading days in performance, got %d", result.Performance.TradingDays)
	}
}

func TestBacktesterValidatesParams(t *testing.T) {
	advisor := &scriptedAdvisor{}
	prices := flatPrices{price: 100}

	params := weekParams()
	params.Ticker = ""
	if _, err := New(advisor, prices, testConfig(), params); err == nil {
		t.Error("Expected an error without a ticker")
	}

	params = weekParams()
	params.StartDate, params.EndDate = params.EndDate, params.StartDate
	if _, err := New(advisor, prices, testConfig(), params); err == nil {
		t.Error("Expected an error when start is after end")
	}

	params = weekParams()
	params.InitialCapital = 0
	if _, err := New(advisor, prices, testConfig(), params); err == nil {
		t.Error("Expected an error without capital")
	}
}

func TestExecuteTrade(t *testing.T) {
	tests := []struct {
		name         string
		portfolio    types.Portfolio
		action       types.Action
		quantity     int
		price        float64
		wantExecuted int
		wantCash     float64
		wantStock    int
	}{
		{name: "buy fills fully", portfolio: types.Portfolio{Cash: 1000}, action: types.Buy, quantity: 5, price: 100, wantExecuted: 5, wantCash: 500, wantStock: 5},
		{name: "buy fills partially", portfolio: types.Portfolio{Cash: 1000}, action: types.Buy, quantity: 20, price: 100, wantExecuted: 10, wantCash: 0, wantStock: 10},
		{name: "buy without cash", portfolio: types.Portfolio{Cash: 50}, action: types.Buy, quantity: 5, price: 100, wantExecuted: 0, wantCash: 50, wantStock: 0},
		{name: "buy at zero price", portfolio: types.Portfolio{Cash: 1000}, action: types.Buy, quantity: 5, price: 0, wantExecuted: 0, wantCash: 1000, wantStock: 0},
		{name: "sell clamps to held", portfolio: types.Portfolio{Stock: 5}, action: types.Sell, quantity: 10, price: 100, wantExecuted: 5, wantCash: 500, wantStock: 0},
		{name: "sell without shares", portfolio: types.Portfolio{Cash: 100}, action: types.Sell, quantity: 3, price: 100, wantExecuted: 0, wantCash: 100, wantStock: 0},
		{name: "hold trades nothing", portfolio: types.Portfolio{Cash: 1000, Stock: 5}, action: types.Hold, quantity: 9, price: 100, wantExecuted: 0, wantCash: 1000, wantStock: 5},
		{name: "negative quantity ignored", portfolio: types.Portfolio{Cash: 1000}, action: types.Buy, quantity: -4, price: 100, wantExecuted: 0, wantCash: 1000, wantStock: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portfolio := tt.portfolio
			executed := executeTrade(&portfolio, tt.action, tt.quantity, tt.price)
			if executed != tt.wantExecuted {
				t.Errorf("Expected executed %d, got %d", tt.wantExecuted, executed)
			}
			if portfolio.Cash != tt.wantCash {
				t.Errorf("Expected cash %.2f, got %.2f", tt.wantCash, portfolio.Cash)
			}
			if portfolio.Stock != tt.wantStock {
				t.Errorf("Expected stock %d, got %d", tt.wantStock, portfolio.Stock)
			}
		})
	}
}
