package ta

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !almostEqual(got, 4.0, 1e-12) {
		t.Errorf("Expected SMA 4.0, got %f", got)
	}

	if !math.IsNaN(SMA([]float64{1, 2}, 3)) {
		t.Error("Expected NaN for short series")
	}
}

func TestStdDevIsSample(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := StdDev(vals, len(vals))
	want := math.Sqrt(32.0 / 7.0)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("Expected sample stdev %f, got %f", want, got)
	}
}

func TestBollinger(t *testing.T) {
	mid, up, low := Bollinger([]float64{1, 2, 3, 4, 5}, 5, 2)
	if !almostEqual(mid, 3.0, 1e-12) {
		t.Errorf("Expected mid 3.0, got %f", mid)
	}
	sd := math.Sqrt(2.5)
	if !almostEqual(up, 3+2*sd, 1e-12) || !almostEqual(low, 3-2*sd, 1e-12) {
		t.Errorf("Unexpected bands: up=%f low=%f", up, low)
	}
}

func TestEMASeries(t *testing.T) {
	// span=3 gives alpha=0.5
	got := EMASeries([]float64{1, 2, 3}, 3)
	want := []float64{1, 1.5, 2.25}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-12) {
			t.Errorf("Expected ema[%d]=%f, got %f", i, want[i], got[i])
		}
	}

	if !almostEqual(EMA([]float64{1, 2, 3}, 3), 2.25, 1e-12) {
		t.Error("Expected EMA to return the last series value")
	}
}

func TestRSIAllGains(t *testing.T) {
	got := RSI([]float64{1, 2, 3, 4, 5, 6}, 5)
	if got != 100.0 {
		t.Errorf("Expected RSI 100 for monotonic gains, got %f", got)
	}
}

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99})
	if len(got) != 2 {
		t.Fatalf("Expected 2 returns, got %d", len(got))
	}
	if !almostEqual(got[0], 0.10, 1e-12) || !almostEqual(got[1], -0.10, 1e-12) {
		t.Errorf("Unexpected returns: %v", got)
	}
}

func TestRollingMeanSkipsPartialWindows(t *testing.T) {
	got := RollingMean([]float64{math.NaN(), 1, 2, 3}, 2)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Error("Expected NaN while the window overlaps missing data")
	}
	if !almostEqual(got[2], 1.5, 1e-12) || !almostEqual(got[3], 2.5, 1e-12) {
		t.Errorf("Unexpected rolling means: %v", got)
	}
}

func TestRollingStd(t *testing.T) {
	got := RollingStd([]float64{1, 2, 3, 4}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Error("Expected NaN before a full window")
	}
	if !almostEqual(got[2], 1.0, 1e-12) || !almostEqual(got[3], 1.0, 1e-12) {
		t.Errorf("Unexpected rolling stdevs: %v", got)
	}
}

func TestSkewnessSymmetric(t *testing.T) {
	got := Skewness([]float64{1, 2, 3, 4, 5}, 5)
	if !almostEqual(got, 0.0, 1e-12) {
		t.Errorf("Expected zero skew for symmetric window, got %f", got)
	}
}

func TestKurtosis(t *testing.T) {
	got := Kurtosis([]float64{1, 2, 3, 4, 5}, 5)
	if !almostEqual(got, -1.2, 1e-12) {
		t.Errorf("Expected excess kurtosis -1.2, got %f", got)
	}

	if !math.IsNaN(Kurtosis([]float64{1, 2, 3}, 3)) {
		t.Error("Expected NaN below four observations")
	}
}

func TestQuantile(t *testing.T) {
	vals := []float64{4, 1, 3, 2}
	if got := Quantile(vals, 0.5); !almostEqual(got, 2.5, 1e-12) {
		t.Errorf("Expected median 2.5, got %f", got)
	}
	if got := Quantile(vals, 0.05); !almostEqual(got, 1.15, 1e-12) {
		t.Errorf("Expected 5th percentile 1.15, got %f", got)
	}

	withNaN := []float64{math.NaN(), 1, 2, 3}
	if got := Quantile(withNaN, 0.5); !almostEqual(got, 2.0, 1e-12) {
		t.Errorf("Expected NaN entries to be skipped, got %f", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	closes := []float64{10, 8, 9, 12, 6}
	got := MaxDrawdown(closes, 3)
	if !almostEqual(got, -0.5, 1e-12) {
		t.Errorf("Expected max drawdown -0.5, got %f", got)
	}

	if !math.IsNaN(MaxDrawdown([]float64{10, 8}, 3)) {
		t.Error("Expected NaN when the series is shorter than the window")
	}
}

func TestADXStrongTrend(t *testing.T) {
	n := 50
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		c := float64(i + 10)
		closes[i] = c
		highs[i] = c + 1
		lows[i] = c - 1
	}
	got := ADX(highs, lows, closes, 14)
	if !almostEqual(got, 100.0, 1e-6) {
		t.Errorf("Expected ADX 100 for a pure uptrend, got %f", got)
	}
}

func TestHurst(t *testing.T) {
	// A linear ramp has constant lagged differences, so the dispersion
	// scaling collapses to a flat fit.
	ramp := make([]float64, 100)
	for i := range ramp {
		ramp[i] = float64(i)
	}
	if got := Hurst(ramp, 20); !almostEqual(got, 0.0, 1e-12) {
		t.Errorf("Expected slope 0 for a ramp, got %f", got)
	}

	if got := Hurst([]float64{1, 2, 3}, 20); got != 0.5 {
		t.Errorf("Expected 0.5 fallback for short series, got %f", got)
	}
}

func TestMeanAndStdSkipNaN(t *testing.T) {
	vals := []float64{math.NaN(), 2, 4}
	if got := Mean(vals); !almostEqual(got, 3.0, 1e-12) {
		t.Errorf("Expected mean 3.0, got %f", got)
	}
	if got := Std(vals); !almostEqual(got, math.Sqrt2, 1e-12) {
		t.Errorf("Expected stdev sqrt(2), got %f", got)
	}
	if !math.IsNaN(Mean([]float64{math.NaN()})) {
		t.Error("Expected NaN mean with no finite values")
	}
}
