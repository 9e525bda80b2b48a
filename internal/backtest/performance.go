package backtest

import (
	"math"

	"stock-advisor/internal/ta"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// Performance summarizes a simulation. Returns and drawdown are fractions.
type Performance struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalValue     float64 `json:"final_value"`
	TotalReturn    float64 `json:"total_return"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	TradingDays    int     `json:"trading_days"`
}

// Analyze computes summary statistics over daily portfolio values. Sharpe is
// mean over sample standard deviation of daily returns, annualized; it stays
// zero when returns do not vary. Drawdown measures each value against the
// running peak.
func Analyze(values []float64, initialCapital float64) Performance {
	perf := Performance{
		InitialCapital: initialCapital,
		TradingDays:    len(values),
	}
	if len(values) == 0 || initialCapital <= 0 {
		return perf
	}

	perf.FinalValue = values[len(values)-1]
	perf.TotalReturn = perf.FinalValue/initialCapital - 1

	rets := ta.Returns(values)
	mean := ta.Mean(rets)
	std := ta.Std(rets)
	if std > 0 {
		perf.SharpeRatio = mean / std * math.Sqrt(tradingDaysPerYear)
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := v/peak - 1; dd < perf.MaxDrawdown {
			perf.MaxDrawdown = dd
		}
	}
	return perf
}
