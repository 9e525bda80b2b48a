package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/llm"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// llmOpinionWeight is the share of the debate verdict ceded to the
// external reasoner when its opinion is available and parsable.
const llmOpinionWeight = 0.3

// debateOpinion is the reasoner's third-party read of the debate.
type debateOpinion struct {
	Analysis  string  `json:"analysis"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// DebateRoomStage weighs the bull and bear researchers against each other,
// optionally blended with an external opinion, and produces the single
// directional call the risk manager acts on. Both researchers are hard
// dependencies.
type DebateRoomStage struct {
	completer interfaces.Completer
}

func NewDebateRoomStage(c interfaces.Completer) *DebateRoomStage {
	return &DebateRoomStage{completer: c}
}

func (s *DebateRoomStage) Run(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	bull, err := snap.Require(StageDebateRoom, StageResearcherBull)
	if err != nil {
		return workflow.Delta{}, err
	}
	bear, err := snap.Require(StageDebateRoom, StageResearcherBear)
	if err != nil {
		return workflow.Delta{}, err
	}

	bullPoints := thesisPoints(bull)
	bearPoints := thesisPoints(bear)

	summary := make([]string, 0, len(bullPoints)+len(bearPoints)+2)
	summary = append(summary, "Bullish Arguments:")
	for _, p := range bullPoints {
		summary = append(summary, "+ "+p)
	}
	summary = append(summary, "\nBearish Arguments:")
	for _, p := range bearPoints {
		summary = append(summary, "- "+p)
	}

	opinion, haveOpinion := s.thirdPartyOpinion(ctx, bull, bear, bullPoints, bearPoints)

	confidenceDiff := bull.Confidence - bear.Confidence
	weight := 0.0
	llmScore := 0.0
	if haveOpinion {
		weight = llmOpinionWeight
		llmScore = clamp(opinion.Score, -1, 1)
	}
	mixed := (1-weight)*confidenceDiff + weight*llmScore

	var signal types.Signal
	var confidence float64
	var reasoning string
	switch {
	case math.Abs(mixed) < 0.1:
		signal = types.Neutral
		confidence = math.Max(bull.Confidence, bear.Confidence)
		reasoning = "Balanced debate with strong arguments on both sides"
	case mixed > 0:
		signal = types.Bullish
		confidence = bull.Confidence
		reasoning = "Bullish arguments more convincing"
	default:
		signal = types.Bearish
		confidence = bear.Confidence
		reasoning = "Bearish arguments more convincing"
	}

	details := map[string]any{
		"bull_confidence":       bull.Confidence,
		"bear_confidence":       bear.Confidence,
		"confidence_diff":       confidenceDiff,
		"mixed_confidence_diff": mixed,
		"debate_summary":        summary,
	}
	if haveOpinion {
		details["llm_score"] = llmScore
		details["llm_analysis"] = opinion.Analysis
		details["llm_reasoning"] = opinion.Reasoning
	}

	out := &workflow.StageOutput{
		Agent:      StageDebateRoom,
		Signal:     string(signal),
		Confidence: confidence,
		Reasoning:  reasoning,
		Details:    details,
	}
	return workflow.Delta{
		Output:  out,
		Context: map[string]any{KeyDebate: *out},
	}, nil
}

// thirdPartyOpinion asks the reasoner to referee the debate. The second
// return is false when the call fails or no valid JSON comes back; the
// caller then scores on researcher confidence alone.
func (s *DebateRoomStage) thirdPartyOpinion(ctx context.Context, bull, bear workflow.StageOutput, bullPoints, bearPoints []string) (debateOpinion, bool) {
	var b strings.Builder
	b.WriteString("You are reviewing an investment debate between two researchers. Assess both sides and give your own view.\n")
	writePerspective(&b, "BULLISH", bull.Confidence, bullPoints)
	writePerspective(&b, "BEARISH", bear.Confidence, bearPoints)
	b.WriteString(`
Reply with JSON in this exact shape:
{
    "analysis": "your assessment of the strengths and weaknesses of each side",
    "score": 0.0,
    "reasoning": "why you chose this score"
}
The score runs from -1.0 (extremely bearish) to 1.0 (extremely bullish), 0 meaning neutral. Reply with valid JSON and nothing else.`)

	messages := []types.Message{
		{Role: "system", Content: "You are a professional financial analyst. Please provide your analysis in English only, not in Chinese or any other language."},
		{Role: "user", Content: b.String()},
	}
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		logger.Warn(ctx, "Debate opinion call failed", "error", err.Error())
		return debateOpinion{}, false
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return debateOpinion{}, false
	}
	var opinion debateOpinion
	if err := json.Unmarshal([]byte(raw), &opinion); err != nil {
		logger.Warn(ctx, "Debate opinion unparsable", "error", err.Error())
		return debateOpinion{}, false
	}
	return opinion, true
}

func writePerspective(b *strings.Builder, label string, confidence float64, points []string) {
	fmt.Fprintf(b, "\n%s view (confidence %.2f):\n", label, confidence)
	for _, p := range points {
		fmt.Fprintf(b, "- %s\n", p)
	}
}

// thesisPoints pulls the researcher's argument list out of its details.
func thesisPoints(out workflow.StageOutput) []string {
	v, ok := out.Details["thesis_points"]
	if !ok {
		return nil
	}
	switch pts := v.(type) {
	case []string:
		return pts
	case []any:
		points := make([]string, 0, len(pts))
		for _, p := range pts {
			if s, ok := p.(string); ok {
				points = append(points, s)
			}
		}
		return points
	}
	return nil
}
