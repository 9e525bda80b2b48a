package agents

import (
	"context"
	"fmt"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// A researcher reinterprets the four primary analyst outputs charitably
// for its side. An analyst that already agrees contributes its own
// confidence; one that does not still contributes a 0.3 base, reflecting
// residual uncertainty, with a stock counter-argument.

const researcherBaseConfidence = 0.3

type thesisSource struct {
	stage    string
	agree    string // thesis line when the analyst backs this side
	disagree string // counter-argument when it does not
}

var bullSources = []thesisSource{
	{StageTechnical, "Technical indicators show bullish momentum with %.0f%% confidence",
		"Technical indicators may be conservative, presenting buying opportunities"},
	{StageFundamentals, "Strong fundamentals with %.0f%% confidence",
		"Company fundamentals show potential for improvement"},
	{StageSentiment, "Positive market sentiment with %.0f%% confidence",
		"Market sentiment may be overly pessimistic, creating value opportunities"},
	{StageValuation, "Stock appears undervalued with %.0f%% confidence",
		"Current valuation may not fully reflect growth potential"},
}

var bearSources = []thesisSource{
	{StageTechnical, "Technical indicators show bearish momentum with %.0f%% confidence",
		"Technical rally may be temporary, suggesting potential reversal"},
	{StageFundamentals, "Concerning fundamentals with %.0f%% confidence",
		"Current fundamental strength may not be sustainable"},
	{StageSentiment, "Negative market sentiment with %.0f%% confidence",
		"Market sentiment may be overly optimistic, indicating potential risks"},
	{StageValuation, "Stock appears overvalued with %.0f%% confidence",
		"Current valuation may not fully reflect downside risks"},
}

func ResearcherBull(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	return research(snap, StageResearcherBull, types.Bullish, bullSources)
}

func ResearcherBear(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	return research(snap, StageResearcherBear, types.Bearish, bearSources)
}

func research(snap *workflow.Snapshot, stage string, side types.Signal, sources []thesisSource) (workflow.Delta, error) {
	points := make([]string, 0, len(sources))
	total := 0.0
	for _, src := range sources {
		out, err := snap.Require(stage, src.stage)
		if err != nil {
			return workflow.Delta{}, err
		}
		if out.Signal == string(side) {
			points = append(points, fmt.Sprintf(src.agree, out.Confidence*100))
			total += out.Confidence
		} else {
			points = append(points, src.disagree)
			total += researcherBaseConfidence
		}
	}
	confidence := total / float64(len(sources))

	out := &workflow.StageOutput{
		Agent:      stage,
		Signal:     string(side),
		Confidence: confidence,
		Reasoning: fmt.Sprintf("%s thesis based on comprehensive analysis of technical, fundamental, sentiment, and valuation factors",
			sideLabel(side)),
		Details: map[string]any{
			"perspective":   string(side),
			"thesis_points": points,
		},
	}
	return workflow.Delta{Output: out}, nil
}

func sideLabel(side types.Signal) string {
	if side == types.Bearish {
		return "Bearish"
	}
	return "Bullish"
}
