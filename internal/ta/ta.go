package ta

import (
	"math"
	"sort"
)

func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n)
}

func Sum(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum
}

// Mean averages the finite entries of vals. NaN entries are skipped.
func Mean(vals []float64) float64 {
	sum, cnt := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		cnt++
	}
	if cnt == 0 {
		return math.NaN()
	}
	return sum / float64(cnt)
}

// Std is the sample standard deviation of the finite entries of vals.
func Std(vals []float64) float64 {
	m := Mean(vals)
	if math.IsNaN(m) {
		return math.NaN()
	}
	s, cnt := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		d := v - m
		s += d * d
		cnt++
	}
	if cnt < 2 {
		return math.NaN()
	}
	return math.Sqrt(s / float64(cnt-1))
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// StdDev is the sample standard deviation of the trailing n entries.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 1 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n-1))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if len(closes) < n+1 {
		return math.NaN()
	}
	trs := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		tr := math.Max(tr1, math.Max(tr2, tr3))
		trs = append(trs, tr)
	}
	sum := 0.0
	for _, v := range trs {
		sum += v
	}
	return sum / float64(n)
}

// EMASeries is an exponentially weighted mean seeded from the first value,
// alpha = 2/(span+1).
func EMASeries(vals []float64, span int) []float64 {
	if len(vals) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

func EMA(vals []float64, span int) float64 {
	s := EMASeries(vals, span)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// ewmMean is the adjusted exponentially weighted mean: each observation at
// age j carries weight (1-alpha)^j. Weights keep decaying across NaN slots
// while the NaN itself contributes nothing.
func ewmMean(vals []float64, span int) []float64 {
	if len(vals) == 0 || span <= 0 {
		return nil
	}
	decay := 1.0 - 2.0/(float64(span)+1.0)
	out := make([]float64, len(vals))
	num, den := 0.0, 0.0
	for i, v := range vals {
		num *= decay
		den *= decay
		if !math.IsNaN(v) {
			num += v
			den += 1
		}
		if den > 0 {
			out[i] = num / den
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// ADX returns the latest average directional index over the whole series.
func ADX(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if n < 2 || len(highs) != n || len(lows) != n || period <= 0 {
		return math.NaN()
	}
	trs := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trs[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		trs[i] = math.Max(tr1, math.Max(tr2, tr3))
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}
	trEWM := ewmMean(trs, period)
	plusEWM := ewmMean(plusDM, period)
	minusEWM := ewmMean(minusDM, period)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if trEWM[i] == 0 {
			dx[i] = math.NaN()
			continue
		}
		plusDI := 100 * plusEWM[i] / trEWM[i]
		minusDI := 100 * minusEWM[i] / trEWM[i]
		if plusDI+minusDI == 0 {
			dx[i] = math.NaN()
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	adx := ewmMean(dx, period)
	return adx[n-1]
}

// Returns is the simple percent change series, one entry shorter than closes.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = closes[i]/closes[i-1] - 1
	}
	return out
}

// RollingMean returns a series aligned with vals: NaN until a full window of
// finite values is available, the windowed mean after that.
func RollingMean(vals []float64, n int) []float64 {
	return rolling(vals, n, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	})
}

// RollingStd is the rolling sample standard deviation, aligned like RollingMean.
func RollingStd(vals []float64, n int) []float64 {
	return rolling(vals, n, func(w []float64) float64 {
		if len(w) < 2 {
			return math.NaN()
		}
		m := 0.0
		for _, v := range w {
			m += v
		}
		m /= float64(len(w))
		s := 0.0
		for _, v := range w {
			d := v - m
			s += d * d
		}
		return math.Sqrt(s / float64(len(w)-1))
	})
}

func rolling(vals []float64, n int, f func([]float64) float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
		if i < n-1 {
			continue
		}
		w := vals[i-n+1 : i+1]
		ok := true
		for _, v := range w {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			out[i] = f(w)
		}
	}
	return out
}

// Skewness is the bias-adjusted sample skewness of the trailing n entries.
func Skewness(vals []float64, n int) float64 {
	if len(vals) < n || n < 3 {
		return math.NaN()
	}
	w := vals[len(vals)-n:]
	m := 0.0
	for _, v := range w {
		m += v
	}
	m /= float64(n)
	s2 := 0.0
	for _, v := range w {
		d := v - m
		s2 += d * d
	}
	s := math.Sqrt(s2 / float64(n-1))
	if s == 0 {
		return math.NaN()
	}
	sum3 := 0.0
	for _, v := range w {
		z := (v - m) / s
		sum3 += z * z * z
	}
	fn := float64(n)
	return fn / ((fn - 1) * (fn - 2)) * sum3
}

// Kurtosis is the bias-adjusted excess kurtosis of the trailing n entries.
func Kurtosis(vals []float64, n int) float64 {
	if len(vals) < n || n < 4 {
		return math.NaN()
	}
	w := vals[len(vals)-n:]
	m := 0.0
	for _, v := range w {
		m += v
	}
	m /= float64(n)
	s2 := 0.0
	for _, v := range w {
		d := v - m
		s2 += d * d
	}
	s := math.Sqrt(s2 / float64(n-1))
	if s == 0 {
		return math.NaN()
	}
	sum4 := 0.0
	for _, v := range w {
		z := (v - m) / s
		sum4 += z * z * z * z
	}
	fn := float64(n)
	return fn*(fn+1)/((fn-1)*(fn-2)*(fn-3))*sum4 - 3*(fn-1)*(fn-1)/((fn-2)*(fn-3))
}

// Hurst estimates the Hurst exponent from the scaling of lagged-difference
// dispersion: slope of log(sqrt(std(diff_lag))) against log(lag) for lags
// 2..maxLag-1. Falls back to 0.5 when the series is too short or the fit
// degenerates.
func Hurst(vals []float64, maxLag int) float64 {
	if maxLag < 3 || len(vals) <= maxLag {
		return 0.5
	}
	logLags := make([]float64, 0, maxLag-2)
	logTaus := make([]float64, 0, maxLag-2)
	for lag := 2; lag < maxLag; lag++ {
		m := len(vals) - lag
		sum, sq := 0.0, 0.0
		for i := 0; i < m; i++ {
			d := vals[i+lag] - vals[i]
			sum += d
			sq += d * d
		}
		mean := sum / float64(m)
		sd := math.Sqrt(sq/float64(m) - mean*mean)
		tau := math.Max(1e-8, math.Sqrt(sd))
		logLags = append(logLags, math.Log(float64(lag)))
		logTaus = append(logTaus, math.Log(tau))
	}
	slope := lsSlope(logLags, logTaus)
	if math.IsNaN(slope) {
		return 0.5
	}
	return slope
}

func lsSlope(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return math.NaN()
	}
	mx, my := 0.0, 0.0
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n
	num, den := 0.0, 0.0
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// Quantile interpolates linearly between order statistics (the type-7
// percentile definition). NaN entries are dropped first.
func Quantile(vals []float64, q float64) float64 {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 || q < 0 || q > 1 {
		return math.NaN()
	}
	sort.Float64s(clean)
	h := float64(len(clean)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(clean)-1 {
		return clean[len(clean)-1]
	}
	frac := h - float64(lo)
	return clean[lo] + frac*(clean[lo+1]-clean[lo])
}

// MaxDrawdown is the worst decline from the trailing-window running maximum,
// expressed as a negative fraction. NaN until a full window exists.
func MaxDrawdown(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window {
		return math.NaN()
	}
	worst := math.NaN()
	for i := window - 1; i < len(closes); i++ {
		max := closes[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if closes[j] > max {
				max = closes[j]
			}
		}
		dd := closes[i]/max - 1
		if math.IsNaN(worst) || dd < worst {
			worst = dd
		}
	}
	return worst
}
