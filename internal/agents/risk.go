package agents

import (
	"context"
	"fmt"
	"math"

	"stock-advisor/internal/ta"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

const (
	annualization   = 252
	volWindow       = 120
	drawdownWindow  = 60
	basePositionPct = 0.25
)

// stressScenario is an informational shock applied to the current
// position; it never alters the recommended action.
type stressScenario struct {
	name  string
	shock float64
}

var stressScenarios = []stressScenario{
	{"market_crash", -0.20},
	{"moderate_decline", -0.10},
	{"slight_decline", -0.05},
}

// RiskManager turns the price series, the portfolio and the debate verdict
// into a bounded risk score, a hard position cap and an allowed trading
// action. The debate output is a hard dependency.
func RiskManager(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	debate, err := snap.Require(StageRiskManager, StageDebateRoom)
	if err != nil {
		return workflow.Delta{}, err
	}
	candles, _ := workflow.ContextValue[[]types.Candle](snap, KeyPrices)
	portfolio, _ := workflow.ContextValue[types.Portfolio](snap, KeyPortfolio)

	closes := closesOf(candles)
	rets := ta.Returns(closes)

	volatility := ta.Std(rets) * math.Sqrt(annualization)

	// Percentile of current volatility against its own trailing
	// distribution, in standard deviations.
	rollingVol := ta.RollingStd(rets, volWindow)
	for i := range rollingVol {
		rollingVol[i] *= math.Sqrt(annualization)
	}
	volMean := ta.Mean(rollingVol)
	volStd := ta.Std(rollingVol)
	volPercentile := 0.0
	if volStd > 0 {
		volPercentile = (volatility - volMean) / volStd
	}

	var95 := ta.Quantile(rets, 0.05)
	maxDD := ta.MaxDrawdown(closes, drawdownWindow)

	marketRisk := marketRiskScore(volPercentile, var95, maxDD)

	bullConf := detailFloat(debate.Details, "bull_confidence")
	bearConf := detailFloat(debate.Details, "bear_confidence")

	riskScore := marketRisk
	if math.Abs(bullConf-bearConf) < 0.1 {
		riskScore++
	}
	if debate.Confidence < 0.3 {
		riskScore++
	}
	if riskScore > 10 {
		riskScore = 10
	}

	lastClose := latest(closes)
	totalValue := portfolio.Value(lastClose)
	maxPosition := basePositionPct * totalValue
	switch {
	case riskScore >= 4:
		maxPosition *= 0.5
	case riskScore >= 2:
		maxPosition *= 0.75
	}

	action := riskAction(riskScore, debate)

	positionValue := float64(portfolio.Stock) * lastClose
	stress := make(map[string]any, len(stressScenarios))
	for _, sc := range stressScenarios {
		loss := positionValue * sc.shock
		impact := 0.0
		if totalValue > 0 {
			impact = loss / totalValue
		}
		stress[sc.name] = map[string]any{
			"shock":            sc.shock,
			"potential_loss":   finite(loss),
			"portfolio_impact": finite(impact),
		}
	}

	out := &workflow.StageOutput{
		Agent:      StageRiskManager,
		Signal:     string(action),
		Confidence: float64(riskScore) / 10,
		Reasoning: fmt.Sprintf("Risk Score %d/10: Market Risk=%d, Volatility=%.2f%%, VaR=%.2f%%, Max Drawdown=%.2f%%",
			riskScore, marketRisk, finite(volatility)*100, finite(var95)*100, finite(maxDD)*100),
		Details: map[string]any{
			"risk_score":        riskScore,
			"market_risk_score": marketRisk,
			"max_position_size": finite(maxPosition),
			"trading_action":    string(action),
			"risk_metrics": map[string]any{
				"volatility":            finite(volatility),
				"value_at_risk_95":      finite(var95),
				"max_drawdown":          finite(maxDD),
				"volatility_percentile": finite(volPercentile),
			},
			"stress_test_results": stress,
		},
	}
	return workflow.Delta{Output: out}, nil
}

// marketRiskScore grades volatility, tail loss and drawdown severity into
// a 0..6 sub-score. It is non-decreasing in each input's severity.
func marketRiskScore(volPercentile, var95, maxDD float64) int {
	score := 0
	switch {
	case volPercentile > 1.5:
		score += 2
	case volPercentile > 1.0:
		score++
	}
	switch {
	case var95 < -0.03:
		score += 2
	case var95 < -0.02:
		score++
	}
	switch {
	case maxDD < -0.20:
		score += 2
	case maxDD < -0.10:
		score++
	}
	return score
}

// riskAction maps the risk score to the allowed trading action. High
// scores override the debate call entirely; otherwise the debate verdict
// is adopted when it is confident enough to act on.
func riskAction(score int, debate workflow.StageOutput) types.Action {
	switch {
	case score >= 9:
		return types.Hold
	case score >= 7:
		return types.Reduce
	case debate.Signal == string(types.Bullish) && debate.Confidence > 0.5:
		return types.Buy
	case debate.Signal == string(types.Bearish) && debate.Confidence > 0.5:
		return types.Sell
	default:
		return types.Hold
	}
}

func detailFloat(details map[string]any, key string) float64 {
	if details == nil {
		return 0
	}
	if v, ok := details[key].(float64); ok {
		return v
	}
	return 0
}
