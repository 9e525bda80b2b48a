package backtest

import (
	"context"
	"fmt"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/store"
	"stock-advisor/internal/types"
)

// Params describes one backtest.
type Params struct {
	Ticker         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	NewsCount      int
}

// Backtester replays the engine over business days, trading against a
// simulated portfolio. Each day sees only a trailing window of market
// context, the way a live run on that day would have.
type Backtester struct {
	advisor interfaces.Advisor
	prices  interfaces.PriceProvider
	budget  *CallBudget
	params  Params

	retries      int
	lookbackDays int
	backoffBase  time.Duration
}

// DayResult is one simulated trading day.
type DayResult struct {
	Date     time.Time    `json:"date"`
	Action   types.Action `json:"action"`
	Quantity int          `json:"quantity"`
	Executed int          `json:"executed"`
	Price    float64      `json:"price"`
	Cash     float64      `json:"cash"`
	Stock    int          `json:"stock"`
	Value    float64      `json:"value"`
	Return   float64      `json:"return"`
	Degraded bool         `json:"degraded,omitempty"`
}

// Result is the full simulation outcome.
type Result struct {
	Days        []DayResult `json:"days"`
	Performance Performance `json:"performance"`
}

func New(advisor interfaces.Advisor, prices interfaces.PriceProvider, cfg *store.Config, params Params) (*Backtester, error) {
	if params.Ticker == "" {
		return nil, fmt.Errorf("backtest needs a ticker")
	}
	if !params.StartDate.Before(params.EndDate) {
		return nil, fmt.Errorf("start date %s must be earlier than end date %s",
			params.StartDate.Format("2006-01-02"), params.EndDate.Format("2006-01-02"))
	}
	if params.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be positive, got %.2f", params.InitialCapital)
	}

	return &Backtester{
		advisor: advisor,
		prices:  prices,
		budget: NewCallBudget(
			cfg.Backtest.WindowCalls,
			time.Duration(cfg.Backtest.WindowSeconds)*time.Second,
			time.Duration(cfg.Backtest.MinCallGapSeconds)*time.Second,
		),
		params:       params,
		retries:      max(cfg.Backtest.MaxRetries, 1),
		lookbackDays: cfg.Backtest.LookbackWindowDays,
		backoffBase:  time.Second,
	}, nil
}

// Run simulates every business day in [StartDate, EndDate]. Days without
// price data are skipped; a canceled context aborts with the error.
func (b *Backtester) Run(ctx context.Context) (*Result, error) {
	portfolio := types.Portfolio{Cash: b.params.InitialCapital}
	var days []DayResult
	var values []float64

	for d := b.params.StartDate; !d.After(b.params.EndDate); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lookback := d.AddDate(0, 0, -b.lookbackDays)
		decision, degraded := b.decide(ctx, lookback, d, portfolio)

		candles, err := b.prices.PriceHistory(ctx, b.params.Ticker, lookback, d)
		if err != nil || len(candles) == 0 {
			logger.Warn(ctx, "No price data for backtest day, skipping",
				"ticker", b.params.Ticker,
				"date", d.Format("2006-01-02"),
			)
			continue
		}
		price := candles[len(candles)-1].Close

		executed := executeTrade(&portfolio, decision.Action, decision.Quantity, price)
		value := portfolio.Cash + float64(portfolio.Stock)*price
		ret := 0.0
		if len(values) > 0 {
			ret = value/values[len(values)-1] - 1
		}
		values = append(values, value)

		days = append(days, DayResult{
			Date:     d,
			Action:   decision.Action,
			Quantity: decision.Quantity,
			Executed: executed,
			Price:    price,
			Cash:     portfolio.Cash,
			Stock:    portfolio.Stock,
			Value:    value,
			Return:   ret,
			Degraded: degraded,
		})

		logger.Info(ctx, "Backtest day complete",
			"date", d.Format("2006-01-02"),
			"action", decision.Action,
			"executed", executed,
			"price", price,
			"value", value,
		)
	}

	return &Result{
		Days:        days,
		Performance: Analyze(values, b.params.InitialCapital),
	}, nil
}

// decide asks the engine for one day's decision, respecting the call budget
// and retrying transient failures. Exhausted retries degrade to hold.
func (b *Backtester) decide(ctx context.Context, start, end time.Time, portfolio types.Portfolio) (types.Decision, bool) {
	for attempt := 0; attempt < b.retries; attempt++ {
		if err := b.budget.Wait(ctx); err != nil {
			break
		}
		decision, err := b.advisor.Run(ctx, types.RunRequest{
			Ticker:    b.params.Ticker,
			StartDate: start,
			EndDate:   end,
			Portfolio: portfolio,
			NewsCount: b.params.NewsCount,
		})
		if err == nil {
			return decision, false
		}
		logger.Warn(ctx, "Backtest decision failed",
			"date", end.Format("2006-01-02"),
			"attempt", attempt+1,
			"max_attempts", b.retries,
			"error", err.Error(),
		)
		if attempt < b.retries-1 {
			select {
			case <-time.After(b.backoffBase << attempt):
			case <-ctx.Done():
				return holdDecision(), true
			}
		}
	}
	return holdDecision(), true
}

func holdDecision() types.Decision {
	return types.Decision{
		Action:    types.Hold,
		Quantity:  0,
		Reasoning: "Decision unavailable, holding position",
	}
}

// executeTrade applies a decision at the day's closing price, clamping buys
// to what cash affords and sells to held shares. Returns the filled quantity.
func executeTrade(portfolio *types.Portfolio, action types.Action, quantity int, price float64) int {
	switch {
	case action == types.Buy && quantity > 0 && price > 0:
		if cost := float64(quantity) * price; cost > portfolio.Cash {
			quantity = int(portfolio.Cash / price)
		}
		if quantity <= 0 {
			return 0
		}
		portfolio.Stock += quantity
		portfolio.Cash -= float64(quantity) * price
		return quantity

	case action == types.Sell && quantity > 0:
		if quantity > portfolio.Stock {
			quantity = portfolio.Stock
		}
		if quantity <= 0 {
			return 0
		}
		portfolio.Stock -= quantity
		portfolio.Cash += float64(quantity) * price
		return quantity

	default:
		return 0
	}
}
