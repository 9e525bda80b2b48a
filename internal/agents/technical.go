package agents

import (
	"context"
	"fmt"
	"math"

	"stock-advisor/internal/ta"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// strategyResult is one sub-strategy's vote inside the technical ensemble.
type strategyResult struct {
	Signal     types.Signal       `json:"signal"`
	Confidence float64            `json:"confidence"`
	Metrics    map[string]float64 `json:"metrics"`
}

// ensembleWeight pairs a sub-strategy with its fixed ensemble weight. The
// ensemble divides by the sum of weight times confidence, so a strategy
// with no conviction cedes its share to the others.
type ensembleWeight struct {
	name   string
	weight float64
	run    func(candles []types.Candle) strategyResult
}

var ensemble = []ensembleWeight{
	{"trend_following", 0.25, trendFollowing},
	{"mean_reversion", 0.20, meanReversion},
	{"momentum", 0.25, momentumStrategy},
	{"volatility", 0.15, volatilityRegime},
	{"stat_arb", 0.15, statArb},
}

// TechnicalAnalyst runs five sub-strategies over the price series and
// combines them into one weighted directional call. Re-running on an
// unchanged series yields an identical result.
func TechnicalAnalyst(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	candles, _ := workflow.ContextValue[[]types.Candle](snap, KeyPrices)

	signals := make(map[string]strategyResult, len(ensemble))
	weightedSum, totalWeight := 0.0, 0.0
	summary := ""
	for _, e := range ensemble {
		res := e.run(candles)
		if math.IsNaN(res.Confidence) || math.IsInf(res.Confidence, 0) {
			res.Confidence = 0
		}
		signals[e.name] = res
		weightedSum += e.weight * res.Signal.Numeric() * res.Confidence
		totalWeight += e.weight * res.Confidence
		if summary != "" {
			summary += ", "
		}
		summary += fmt.Sprintf("%s %s (%.2f)", e.name, res.Signal, res.Confidence)
	}

	score := 0.0
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	signal := types.Neutral
	switch {
	case score > 0.2:
		signal = types.Bullish
	case score < -0.2:
		signal = types.Bearish
	}

	out := &workflow.StageOutput{
		Agent:      StageTechnical,
		Signal:     string(signal),
		Confidence: math.Abs(score),
		Reasoning:  fmt.Sprintf("Ensemble score %.2f: %s", score, summary),
		Details:    map[string]any{"strategy_signals": signals},
	}
	return workflow.Delta{Output: out}, nil
}

// trendFollowing reads trend direction off stacked exponential averages
// and scales conviction by trend strength.
func trendFollowing(candles []types.Candle) strategyResult {
	closes := closesOf(candles)
	ema8 := ta.EMA(closes, 8)
	ema21 := ta.EMA(closes, 21)
	ema55 := ta.EMA(closes, 55)
	adx := ta.ADX(highsOf(candles), lowsOf(candles), closes, 14)

	shortTrend := ema8 > ema21
	mediumTrend := ema21 > ema55

	sig, conf := types.Neutral, 0.5
	switch {
	case shortTrend && mediumTrend:
		sig, conf = types.Bullish, adx/100
	case !shortTrend && !mediumTrend:
		sig, conf = types.Bearish, adx/100
	}
	return strategyResult{sig, conf, map[string]float64{
		"adx":            finite(adx),
		"trend_strength": finite(adx / 100),
	}}
}

// meanReversion looks for stretched prices: a large z-score against the
// 50-period mean confirmed by the Bollinger band position.
func meanReversion(candles []types.Candle) strategyResult {
	closes := closesOf(candles)
	price := latest(closes)
	ma50 := ta.SMA(closes, 50)
	std50 := ta.StdDev(closes, 50)
	z := (price - ma50) / std50

	_, upper, lower := ta.Bollinger(closes, 20, 2)
	priceVsBB := (price - lower) / (upper - lower)

	sig, conf := types.Neutral, 0.5
	switch {
	case z < -2 && priceVsBB < 0.2:
		sig, conf = types.Bullish, math.Min(math.Abs(z)/4, 1)
	case z > 2 && priceVsBB > 0.8:
		sig, conf = types.Bearish, math.Min(math.Abs(z)/4, 1)
	}
	return strategyResult{sig, conf, map[string]float64{
		"z_score":     finite(z),
		"price_vs_bb": finite(priceVsBB),
		"rsi_14":      finite(ta.RSI(closes, 14)),
		"rsi_28":      finite(ta.RSI(closes, 28)),
	}}
}

// momentumStrategy blends one, three and six month return momentum and
// requires above-average volume before acting on it.
func momentumStrategy(candles []types.Candle) strategyResult {
	closes := closesOf(candles)
	volumes := volumesOf(candles)
	rets := ta.Returns(closes)

	m1 := ta.Sum(rets, 21)
	m3 := ta.Sum(rets, 63)
	m6 := ta.Sum(rets, 126)
	volumeMomentum := latest(volumes) / ta.SMA(volumes, 21)

	score := 0.4*m1 + 0.3*m3 + 0.3*m6

	sig, conf := types.Neutral, 0.5
	switch {
	case score > 0.05 && volumeMomentum > 1:
		sig, conf = types.Bullish, math.Min(math.Abs(score)*5, 1)
	case score < -0.05 && volumeMomentum > 1:
		sig, conf = types.Bearish, math.Min(math.Abs(score)*5, 1)
	}
	return strategyResult{sig, conf, map[string]float64{
		"momentum_1m":     finite(m1),
		"momentum_3m":     finite(m3),
		"momentum_6m":     finite(m6),
		"volume_momentum": finite(volumeMomentum),
	}}
}

// volatilityRegime trades transitions between volatility regimes: entering
// a calm regime is bullish, an expanding one bearish.
func volatilityRegime(candles []types.Candle) strategyResult {
	closes := closesOf(candles)
	rets := ta.Returns(closes)

	histVol := ta.RollingStd(rets, 21)
	for i := range histVol {
		histVol[i] *= math.Sqrt(252)
	}
	volMA := ta.RollingMean(histVol, 63)
	volStd := ta.RollingStd(histVol, 63)

	hv, ma, sd := latest(histVol), latest(volMA), latest(volStd)
	regime := hv / ma
	z := (hv - ma) / sd

	sig, conf := types.Neutral, 0.5
	switch {
	case regime < 0.8 && z < -1:
		sig, conf = types.Bullish, math.Min(math.Abs(z)/3, 1)
	case regime > 1.2 && z > 1:
		sig, conf = types.Bearish, math.Min(math.Abs(z)/3, 1)
	}
	return strategyResult{sig, conf, map[string]float64{
		"historical_volatility": finite(hv),
		"volatility_regime":     finite(regime),
		"volatility_z_score":    finite(z),
		"atr_ratio":             finite(ta.ATR(highsOf(candles), lowsOf(candles), closes, 14) / latest(closes)),
	}}
}

// statArb tests for anti-persistent (mean reverting) price behavior via
// the Hurst exponent and only acts when return skew agrees.
func statArb(candles []types.Candle) strategyResult {
	closes := closesOf(candles)
	rets := ta.Returns(closes)

	skew := ta.Skewness(rets, 63)
	kurt := ta.Kurtosis(rets, 63)
	hurst := ta.Hurst(closes, 20)

	sig, conf := types.Neutral, 0.5
	switch {
	case hurst < 0.4 && skew > 1:
		sig, conf = types.Bullish, (0.5-hurst)*2
	case hurst < 0.4 && skew < -1:
		sig, conf = types.Bearish, (0.5-hurst)*2
	}
	return strategyResult{sig, conf, map[string]float64{
		"hurst_exponent": finite(hurst),
		"skewness":       finite(skew),
		"kurtosis":       finite(kurt),
	}}
}

func latest(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}
