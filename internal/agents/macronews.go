package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/llm"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// marketReport is the reasoner's digest of the day's market-wide news.
type marketReport struct {
	Summary         string   `json:"summary"`
	MarketSentiment string   `json:"market_sentiment"`
	KeyThemes       []string `json:"key_themes"`
	Risks           []string `json:"risks"`
}

// MacroNewsStage summarizes market-wide news into a macro read of the
// whole market. It runs independently of the ticker analysis path and
// joins it again only at the final decision.
type MacroNewsStage struct {
	completer interfaces.Completer
}

func NewMacroNewsStage(c interfaces.Completer) *MacroNewsStage {
	return &MacroNewsStage{completer: c}
}

func (s *MacroNewsStage) Run(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	articles, _ := workflow.ContextValue[[]types.NewsArticle](snap, KeyMarketNews)
	if len(articles) == 0 {
		out := &workflow.StageOutput{
			Agent:      StageMacroNews,
			Signal:     string(types.Neutral),
			Confidence: 0,
			Reasoning:  "No market-wide news retrieved today",
			Details:    map[string]any{"news_count": 0},
		}
		return workflow.Delta{Output: out}, nil
	}

	report, ok := s.summarize(ctx, articles)
	if !ok {
		out := &workflow.StageOutput{
			Agent:      StageMacroNews,
			Signal:     string(types.Neutral),
			Confidence: 0,
			Reasoning:  "Market news analysis unavailable, defaulting to neutral",
			Details:    map[string]any{"news_count": len(articles)},
		}
		return workflow.Delta{Output: out}, nil
	}

	signal, confidence := classificationSignal(report.MarketSentiment)
	out := &workflow.StageOutput{
		Agent:      StageMacroNews,
		Signal:     string(signal),
		Confidence: confidence,
		Reasoning:  report.Summary,
		Details: map[string]any{
			"market_sentiment": report.MarketSentiment,
			"key_themes":       report.KeyThemes,
			"risks":            report.Risks,
			"news_count":       len(articles),
		},
	}
	return workflow.Delta{Output: out}, nil
}

func (s *MacroNewsStage) summarize(ctx context.Context, articles []types.NewsArticle) (marketReport, bool) {
	user := fmt.Sprintf(`You are a senior market analyst. From today's full market news below, write a professional macro summary covering:
1. Overall market sentiment and the evidence for your reading
2. The 1-3 hottest sectors or themes and what drives them
3. 1-2 latent macro or market-level risks
4. Short and long term effects of any significant policy changes
5. A concise short-term outlook

Today's market news:

%s

Reply with JSON containing these fields: summary (the full report), market_sentiment (positive/neutral/negative), key_themes (array), risks (array). Reply with valid JSON and nothing else.`,
		newsDigest(articles, macroDigestLimit))

	messages := []types.Message{{Role: "user", Content: user}}
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		logger.Warn(ctx, "Market news completion failed", "error", err.Error())
		return marketReport{}, false
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return marketReport{}, false
	}
	var report marketReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		logger.Warn(ctx, "Market news report unparsable", "error", err.Error())
		return marketReport{}, false
	}
	report.MarketSentiment = normalizeTone(report.MarketSentiment)
	if report.MarketSentiment == "" {
		return marketReport{}, false
	}
	return report, true
}
