package agents

import (
	"context"
	"fmt"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// FundamentalsAnalyst scores profitability, growth, balance-sheet health
// and price ratios against fixed thresholds. Each category casts one vote;
// the overall signal is the majority and confidence is the winning vote
// share. A zero metric means the provider had no data for it.
func FundamentalsAnalyst(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	m, _ := workflow.ContextValue[types.FinancialMetrics](snap, KeyMetrics)

	profitability := countAbove(
		threshold{m.ReturnOnEquity, 0.15},
		threshold{m.NetMargin, 0.20},
		threshold{m.OperatingMargin, 0.15},
	)
	profitSignal := voteSignal(profitability)

	growth := countAbove(
		threshold{m.RevenueGrowth, 0.10},
		threshold{m.EarningsGrowth, 0.10},
		threshold{m.BookValueGrowth, 0.10},
	)
	growthSignal := voteSignal(growth)

	health := 0
	if m.CurrentRatio > 1.5 {
		health++
	}
	if m.DebtToEquity != 0 && m.DebtToEquity < 0.5 {
		health++
	}
	if m.FreeCashFlowPerShare != 0 && m.EarningsPerShare != 0 &&
		m.FreeCashFlowPerShare > m.EarningsPerShare*0.8 {
		health++
	}
	healthSignal := voteSignal(health)

	priceRatios := countAbove(
		threshold{m.PriceToEarnings, 25},
		threshold{m.PriceToBook, 3},
		threshold{m.PriceToSales, 5},
	)
	ratioSignal := voteSignal(priceRatios)

	bullish, bearish := 0, 0
	for _, s := range []types.Signal{profitSignal, growthSignal, healthSignal, ratioSignal} {
		switch s {
		case types.Bullish:
			bullish++
		case types.Bearish:
			bearish++
		}
	}
	overall := types.Neutral
	if bullish > bearish {
		overall = types.Bullish
	} else if bearish > bullish {
		overall = types.Bearish
	}
	confidence := float64(max(bullish, bearish)) / 4

	out := &workflow.StageOutput{
		Agent:      StageFundamentals,
		Signal:     string(overall),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("%d of 4 categories bullish, %d bearish", bullish, bearish),
		Details: map[string]any{
			"profitability_signal": categoryDetail(profitSignal,
				ratioLine("ROE", m.ReturnOnEquity)+", "+ratioLine("Net Margin", m.NetMargin)+", "+ratioLine("Op Margin", m.OperatingMargin)),
			"growth_signal": categoryDetail(growthSignal,
				ratioLine("Revenue Growth", m.RevenueGrowth)+", "+ratioLine("Earnings Growth", m.EarningsGrowth)),
			"financial_health_signal": categoryDetail(healthSignal,
				plainLine("Current Ratio", m.CurrentRatio)+", "+plainLine("D/E", m.DebtToEquity)),
			"price_ratios_signal": categoryDetail(ratioSignal,
				plainLine("P/E", m.PriceToEarnings)+", "+plainLine("P/B", m.PriceToBook)+", "+plainLine("P/S", m.PriceToSales)),
		},
	}
	return workflow.Delta{Output: out}, nil
}

type threshold struct {
	value float64
	above float64
}

func countAbove(ts ...threshold) int {
	n := 0
	for _, t := range ts {
		if t.value > t.above {
			n++
		}
	}
	return n
}

// voteSignal maps a 0..3 category score to a direction: two or more hits
// is bullish, none at all bearish.
func voteSignal(score int) types.Signal {
	switch {
	case score >= 2:
		return types.Bullish
	case score == 0:
		return types.Bearish
	default:
		return types.Neutral
	}
}

func categoryDetail(sig types.Signal, details string) map[string]any {
	return map[string]any{"signal": string(sig), "details": details}
}

func ratioLine(label string, v float64) string {
	if v == 0 {
		return label + ": N/A"
	}
	return fmt.Sprintf("%s: %.2f%%", label, v*100)
}

func plainLine(label string, v float64) string {
	if v == 0 {
		return label + ": N/A"
	}
	return fmt.Sprintf("%s: %.2f", label, v)
}
