package agents

import (
	"context"
	"fmt"
	"math"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// ValuationAnalyst estimates intrinsic value two ways, a five-year DCF and
// an owner-earnings projection, and signals on the average gap between the
// estimates and the current market cap. A gap beyond 15% either way moves
// the signal off neutral.
func ValuationAnalyst(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	metrics, _ := workflow.ContextValue[types.FinancialMetrics](snap, KeyMetrics)
	items, _ := workflow.ContextValue[[]types.LineItems](snap, KeyLineItems)
	marketCap, _ := workflow.ContextValue[float64](snap, KeyMarketCap)

	if marketCap <= 0 {
		out := &workflow.StageOutput{
			Agent:      StageValuation,
			Signal:     string(types.Neutral),
			Confidence: 0,
			Reasoning:  "Market cap unavailable, valuation skipped",
		}
		return workflow.Delta{Output: out}, nil
	}

	var current, previous types.LineItems
	if len(items) > 0 {
		current = items[0]
		previous = current
		if len(items) > 1 {
			previous = items[1]
		}
	}
	workingCapitalChange := current.WorkingCapital - previous.WorkingCapital

	ownerValue := ownerEarningsValue(
		current.NetIncome,
		current.DepreciationAndAmortization,
		current.CapitalExpenditure,
		workingCapitalChange,
		metrics.EarningsGrowth,
		0.15, // required return
		0.25, // margin of safety
		5,
	)
	dcf := dcfValue(current.FreeCashFlow, metrics.EarningsGrowth, 0.10, 0.03, 5)

	dcfGap := (dcf - marketCap) / marketCap
	ownerGap := (ownerValue - marketCap) / marketCap
	gap := (dcfGap + ownerGap) / 2

	signal := types.Neutral
	switch {
	case gap > 0.15:
		signal = types.Bullish
	case gap < -0.15:
		signal = types.Bearish
	}

	out := &workflow.StageOutput{
		Agent:      StageValuation,
		Signal:     string(signal),
		Confidence: clamp(math.Abs(gap), 0, 1),
		Reasoning:  fmt.Sprintf("Combined valuation gap %.1f%% against market cap", gap*100),
		Details: map[string]any{
			"dcf_analysis": map[string]any{
				"signal": string(gapSignal(dcfGap)),
				"details": fmt.Sprintf("Intrinsic Value: $%.2f, Market Cap: $%.2f, Gap: %.1f%%",
					dcf, marketCap, dcfGap*100),
			},
			"owner_earnings_analysis": map[string]any{
				"signal": string(gapSignal(ownerGap)),
				"details": fmt.Sprintf("Owner Earnings Value: $%.2f, Market Cap: $%.2f, Gap: %.1f%%",
					ownerValue, marketCap, ownerGap*100),
			},
		},
	}
	return workflow.Delta{Output: out}, nil
}

func gapSignal(gap float64) types.Signal {
	switch {
	case gap > 0.15:
		return types.Bullish
	case gap < -0.15:
		return types.Bearish
	default:
		return types.Neutral
	}
}

// ownerEarningsValue projects Buffett-style owner earnings (net income plus
// depreciation minus capex minus working-capital change), discounts five
// years plus a capped-growth terminal value, and applies the margin of
// safety. Non-positive owner earnings value at zero.
func ownerEarningsValue(netIncome, depreciation, capex, workingCapitalChange, growthRate, requiredReturn, marginOfSafety float64, years int) float64 {
	ownerEarnings := netIncome + depreciation - capex - workingCapitalChange
	if ownerEarnings <= 0 {
		return 0
	}

	total := 0.0
	lastDiscounted := 0.0
	for year := 1; year <= years; year++ {
		future := ownerEarnings * math.Pow(1+growthRate, float64(year))
		lastDiscounted = future / math.Pow(1+requiredReturn, float64(year))
		total += lastDiscounted
	}

	terminalGrowth := math.Min(growthRate, 0.03)
	terminal := lastDiscounted * (1 + terminalGrowth) / (requiredReturn - terminalGrowth)
	total += terminal / math.Pow(1+requiredReturn, float64(years))

	return total * (1 - marginOfSafety)
}

// dcfValue discounts projected free cash flow over the horizon plus a
// perpetuity terminal value. The first projected year is the current flow.
func dcfValue(freeCashFlow, growthRate, discountRate, terminalGrowth float64, years int) float64 {
	flows := make([]float64, years)
	for i := 0; i < years; i++ {
		flows[i] = freeCashFlow * math.Pow(1+growthRate, float64(i))
	}

	total := 0.0
	for i, f := range flows {
		total += f / math.Pow(1+discountRate, float64(i+1))
	}

	terminal := flows[years-1] * (1 + terminalGrowth) / (discountRate - terminalGrowth)
	total += terminal / math.Pow(1+discountRate, float64(years))

	return total
}
