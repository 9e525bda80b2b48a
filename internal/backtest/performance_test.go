package backtest

import (
	"math"
	"testing"
)

func TestAnalyzeEmptySeries(t *testing.T) {
	perf := Analyze(nil, 10000)
	if perf.TradingDays != 0 || perf.TotalReturn != 0 || perf.SharpeRatio != 0 || perf.MaxDrawdown != 0 {
		t.Errorf("Expected zeroed performance for an empty series, got %+v", perf)
	}
}

func TestAnalyzeFlatSeries(t *testing.T) {
	perf := Analyze([]float64{10000, 10000, 10000}, 10000)
	if perf.TotalReturn != 0 {
		t.Errorf("Expected zero total return, got %v", perf.TotalReturn)
	}
	if perf.SharpeRatio != 0 {
		t.Errorf("Expected zero sharpe when returns do not vary, got %v", perf.SharpeRatio)
	}
	if perf.MaxDrawdown != 0 {
		t.Errorf("Expected zero drawdown, got %v", perf.MaxDrawdown)
	}
	if perf.TradingDays != 3 {
		t.Errorf("Expected 3 trading days, got %d", perf.TradingDays)
	}
}

func TestAnalyzeMixedSeries(t *testing.T) {
	perf := Analyze([]float64{100, 90, 120}, 100)

	if math.Abs(perf.TotalReturn-0.2) > 1e-9 {
		t.Errorf("Expected total return 0.2, got %v", perf.TotalReturn)
	}
	if math.Abs(perf.MaxDrawdown-(-0.1)) > 1e-9 {
		t.Errorf("Expected max drawdown -0.1, got %v", perf.MaxDrawdown)
	}
	// Daily returns -0.1 and 1/3: annualized mean over sample std.
	if math.Abs(perf.SharpeRatio-6.0442) > 1e-3 {
		t.Errorf("Expected sharpe near 6.0442, got %v", perf.SharpeRatio)
	}
	if perf.FinalValue != 120 {
		t.Errorf("Expected final value 120, got %v", perf.FinalValue)
	}
}

func TestAnalyzeSingleReturnHasNoSharpe(t *testing.T) {
	perf := Analyze([]float64{100, 80}, 100)

	if math.Abs(perf.TotalReturn-(-0.2)) > 1e-9 {
		t.Errorf("Expected total return -0.2, got %v", perf.TotalReturn)
	}
	if math.Abs(perf.MaxDrawdown-(-0.2)) > 1e-9 {
		t.Errorf("Expected max drawdown -0.2, got %v", perf.MaxDrawdown)
	}
	if perf.SharpeRatio != 0 {
		t.Errorf("Expected zero sharpe with a single return, got %v", perf.SharpeRatio)
	}
}

func TestAnalyzeDrawdownTracksRunningPeak(t *testing.T) {
	// Peak 120, trough 84: drawdown -0.3 even though the series ends higher
	// than it started.
	perf := Analyze([]float64{100, 120, 84, 130}, 100)

	if math.Abs(perf.MaxDrawdown-(-0.3)) > 1e-9 {
		t.Errorf("Expected max drawdown -0.3, got %v", perf.MaxDrawdown)
	}
	if math.Abs(perf.TotalReturn-0.3) > 1e-9 {
		t.Errorf("Expected total return 0.3, got %v", perf.TotalReturn)
	}
}
