package agents

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

func researcherOutput(stage string, side types.Signal, confidence float64, points ...string) workflow.StageOutput {
	return workflow.StageOutput{
		Agent:      stage,
		Signal:     string(side),
		Confidence: confidence,
		Details: map[string]any{
			"perspective":   string(side),
			"thesis_points": points,
		},
	}
}

func runDebate(t *testing.T, completer *stubCompleter, bullConf, bearConf float64) workflow.Delta {
	t.Helper()
	outputs := []workflow.StageOutput{
		researcherOutput(StageResearcherBull, types.Bullish, bullConf, "strong earnings", "cheap valuation"),
		researcherOutput(StageResearcherBear, types.Bearish, bearConf, "weak guidance"),
	}
	stage := NewDebateRoomStage(completer)
	delta, err := stage.Run(context.Background(), testSnapshot(outputs, nil))
	if err != nil {
		t.Fatalf("Debate stage failed: %v", err)
	}
	return delta
}

func TestDebateCloseCallWithoutOpinionIsNeutral(t *testing.T) {
	completer := &stubCompleter{err: errors.New("boom")}
	delta := runDebate(t, completer, 0.8, 0.75)
	out := *delta.Output

	if out.Signal != string(types.Neutral) {
		t.Errorf("Expected neutral on a close call, got %s", out.Signal)
	}
	if out.Confidence != 0.8 {
		t.Errorf("Expected confidence 0.8, got %v", out.Confidence)
	}
	if out.Reasoning != "Balanced debate with strong arguments on both sides" {
		t.Errorf("Unexpected reasoning %q", out.Reasoning)
	}
	// Without an opinion the diff passes through unweighted.
	if mixed := out.Details["mixed_confidence_diff"].(float64); math.Abs(mixed-0.05) > 1e-9 {
		t.Errorf("Expected mixed diff 0.05, got %v", mixed)
	}
	if _, ok := out.Details["llm_score"]; ok {
		t.Error("Expected no llm_score when the opinion call failed")
	}
}

func TestDebateOpinionTipsTheBalance(t *testing.T) {
	completer := &stubCompleter{reply: `{"analysis": "bulls have it", "score": 0.9, "reasoning": "momentum"}`}
	delta := runDebate(t, completer, 0.8, 0.75)
	out := *delta.Output

	if out.Signal != string(types.Bullish) {
		t.Errorf("Expected bullish, got %s", out.Signal)
	}
	if out.Confidence != 0.8 {
		t.Errorf("Expected bull confidence 0.8, got %v", out.Confidence)
	}
	if out.Reasoning != "Bullish arguments more convincing" {
		t.Errorf("Unexpected reasoning %q", out.Reasoning)
	}
	// 0.7*0.05 + 0.3*0.9
	if mixed := out.Details["mixed_confidence_diff"].(float64); math.Abs(mixed-0.305) > 1e-9 {
		t.Errorf("Expected mixed diff 0.305, got %v", mixed)
	}
	if out.Details["llm_score"] != 0.9 {
		t.Errorf("Expected llm_score 0.9, got %v", out.Details["llm_score"])
	}
	if out.Details["llm_analysis"] != "bulls have it" {
		t.Errorf("Expected analysis recorded, got %v", out.Details["llm_analysis"])
	}
}

func TestDebateBearishOpinionFlipsCall(t *testing.T) {
	completer := &stubCompleter{reply: `{"analysis": "a", "score": -1, "reasoning": "r"}`}
	delta := runDebate(t, completer, 0.8, 0.75)
	out := *delta.Output

	if out.Signal != string(types.Bearish) {
		t.Errorf("Expected bearish, got %s", out.Signal)
	}
	if out.Confidence != 0.75 {
		t.Errorf("Expected bear confidence 0.75, got %v", out.Confidence)
	}
	// 0.7*0.05 + 0.3*(-1)
	if mixed := out.Details["mixed_confidence_diff"].(float64); math.Abs(mixed+0.265) > 1e-9 {
		t.Errorf("Expected mixed diff -0.265, got %v", mixed)
	}
}

func TestDebateOpinionScoreClamped(t *testing.T) {
	completer := &stubCompleter{reply: `{"analysis": "a", "score": 5, "reasoning": "r"}`}
	delta := runDebate(t, completer, 0.5, 0.5)
	if delta.Output.Details["llm_score"] != 1.0 {
		t.Errorf("Expected score clamped to 1, got %v", delta.Output.Details["llm_score"])
	}
}

func TestDebateUnparsableOpinionIgnored(t *testing.T) {
	completer := &stubCompleter{reply: "the bulls win, trust me"}
	delta := runDebate(t, completer, 0.9, 0.3)
	out := *delta.Output

	if out.Signal != string(types.Bullish) {
		t.Errorf("Expected bullish from raw diff, got %s", out.Signal)
	}
	if out.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", out.Confidence)
	}
	if _, ok := out.Details["llm_score"]; ok {
		t.Error("Expected no llm_score for unparsable reply")
	}
}

func TestDebateSummaryAndPrompt(t *testing.T) {
	completer := &stubCompleter{reply: `{"analysis": "a", "score": 0, "reasoning": "r"}`}
	delta := runDebate(t, completer, 0.8, 0.75)
	out := *delta.Output

	summary := out.Details["debate_summary"].([]string)
	expected := []string{
		"Bullish Arguments:",
		"+ strong earnings",
		"+ cheap valuation",
		"\nBearish Arguments:",
		"- weak guidance",
	}
	if len(summary) != len(expected) {
		t.Fatalf("Expected %d summary lines, got %d", len(expected), len(summary))
	}
	for i, want := range expected {
		if summary[i] != want {
			t.Errorf("Summary line %d: expected %q, got %q", i, want, summary[i])
		}
	}

	if completer.last[0].Role != "system" {
		t.Fatalf("Expected system message first, got %s", completer.last[0].Role)
	}
	prompt := completer.last[1].Content
	for _, fragment := range []string{"BULLISH view (confidence 0.80)", "BEARISH view (confidence 0.75)", "strong earnings", "weak guidance"} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("Expected prompt to contain %q", fragment)
		}
	}
}

func TestDebatePublishesContext(t *testing.T) {
	delta := runDebate(t, &stubCompleter{err: errors.New("down")}, 0.8, 0.2)
	stored, ok := delta.Context[KeyDebate].(workflow.StageOutput)
	if !ok {
		t.Fatalf("Expected debate output in context, got %T", delta.Context[KeyDebate])
	}
	if stored.Signal != delta.Output.Signal || stored.Confidence != delta.Output.Confidence {
		t.Error("Expected context copy to match the published output")
	}
}

func TestDebateMissingResearcherIsFatal(t *testing.T) {
	outputs := []workflow.StageOutput{
		researcherOutput(StageResearcherBull, types.Bullish, 0.8, "p"),
	}
	stage := NewDebateRoomStage(&stubCompleter{reply: "{}"})
	_, err := stage.Run(context.Background(), testSnapshot(outputs, nil))
	var missing *workflow.MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingDependencyError, got %v", err)
	}
	if missing.Dep != StageResearcherBear {
		t.Errorf("Expected missing %s, got %s", StageResearcherBear, missing.Dep)
	}
}
