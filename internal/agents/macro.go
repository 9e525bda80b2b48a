package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/llm"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

const macroDigestLimit = 50

const macroSystemPrompt = `You are a senior macroeconomic analyst. From the provided news, assess the current macro environment and its likely effect on the target company.

Consider these macro factors:
1. Monetary policy: rates, reserve requirements, open market operations
2. Fiscal policy: government spending, taxation, subsidies
3. Industry policy: sector plans, regulation, environmental requirements
4. International environment: global economy, trade relations, geopolitics
5. Market sentiment: investor confidence, liquidity, risk appetite

Base the analysis on facts in the news, weigh medium and long term effects over short-term noise, and be specific.`

// classification is the shared JSON shape both macro stages expect back
// from the reasoner.
type classification struct {
	MacroEnvironment string   `json:"macro_environment"`
	ImpactOnStock    string   `json:"impact_on_stock"`
	KeyFactors       []string `json:"key_factors"`
	Reasoning        string   `json:"reasoning"`
}

// MacroAnalystStage classifies the macro environment and its expected
// impact on the ticker from recent company news. Its verdict is advisory
// input to the final decision only; the risk manager never sees it.
type MacroAnalystStage struct {
	completer interfaces.Completer
}

func NewMacroAnalystStage(c interfaces.Completer) *MacroAnalystStage {
	return &MacroAnalystStage{completer: c}
}

func (s *MacroAnalystStage) Run(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	articles, _ := workflow.ContextValue[[]types.NewsArticle](snap, KeyNews)
	recent := recentArticles(articles, newsWindow)
	if len(recent) == 0 {
		return macroFallback(StageMacroAnalyst, "No recent news available for macro analysis"), nil
	}

	user := fmt.Sprintf(`Analyze the following news and assess the current macro environment and its impact on the company.

%s

Reply with JSON containing these fields: macro_environment (positive/neutral/negative), impact_on_stock (positive/neutral/negative), key_factors (array of the 3-5 most important macro factors), reasoning (detailed explanation).`,
		newsDigest(recent, macroDigestLimit))

	messages := []types.Message{
		{Role: "system", Content: macroSystemPrompt},
		{Role: "user", Content: user},
	}
	result, ok := s.classify(ctx, messages)
	if !ok {
		return macroFallback(StageMacroAnalyst, "Macro analysis unavailable, defaulting to neutral"), nil
	}

	signal, confidence := classificationSignal(result.ImpactOnStock)
	out := &workflow.StageOutput{
		Agent:      StageMacroAnalyst,
		Signal:     string(signal),
		Confidence: confidence,
		Reasoning:  result.Reasoning,
		Details: map[string]any{
			"macro_environment": result.MacroEnvironment,
			"impact_on_stock":   result.ImpactOnStock,
			"key_factors":       result.KeyFactors,
		},
	}
	return workflow.Delta{Output: out}, nil
}

func (s *MacroAnalystStage) classify(ctx context.Context, messages []types.Message) (classification, bool) {
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		logger.Warn(ctx, "Macro completion failed", "error", err.Error())
		return classification{}, false
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return classification{}, false
	}
	var result classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logger.Warn(ctx, "Macro classification unparsable", "error", err.Error())
		return classification{}, false
	}
	result.MacroEnvironment = normalizeTone(result.MacroEnvironment)
	result.ImpactOnStock = normalizeTone(result.ImpactOnStock)
	if result.MacroEnvironment == "" || result.ImpactOnStock == "" {
		return classification{}, false
	}
	return result, true
}

// classificationSignal maps a positive/neutral/negative tone to a
// directional signal. A definite call carries more weight than a neutral
// one; fallbacks elsewhere carry zero.
func classificationSignal(tone string) (types.Signal, float64) {
	switch tone {
	case "positive":
		return types.Bullish, 0.6
	case "negative":
		return types.Bearish, 0.6
	default:
		return types.Neutral, 0.5
	}
}

func normalizeTone(tone string) string {
	switch strings.ToLower(strings.TrimSpace(tone)) {
	case "positive", "neutral", "negative":
		return strings.ToLower(strings.TrimSpace(tone))
	}
	return ""
}

func macroFallback(stage, reason string) workflow.Delta {
	return workflow.Delta{Output: &workflow.StageOutput{
		Agent:      stage,
		Signal:     string(types.Neutral),
		Confidence: 0,
		Reasoning:  reason,
		Details: map[string]any{
			"macro_environment": "neutral",
			"impact_on_stock":   "neutral",
			"key_factors":       []string{},
		},
	}}
}
