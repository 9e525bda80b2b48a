package agents

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

const sentimentSystemPrompt = `You are a professional market analyst who judges how news flow will move a stock.
Score the overall sentiment of the provided articles as one number between -1 and 1:
- 1: extremely positive (major good news, results far above expectations, strong policy support)
- 0.5 to 0.9: positive (earnings growth, new projects landing, contract wins)
- 0.1 to 0.4: slightly positive (routine positive developments)
- 0: neutral (routine announcements, no material impact)
- -0.1 to -0.4: slightly negative (minor litigation, non-core losses)
- -0.5 to -0.9: negative (declining results, loss of key customers, tightening regulation)
- -1: extremely negative (serious violations, core business losses, regulatory penalties)

Weigh earnings news, policy changes, market position, capital operations, risk events and public perception.`

// SentimentStage scores the trailing week of ticker news with the external
// reasoner and maps the score onto a directional signal. Strong scores
// carry their own magnitude as confidence; the neutral band carries the
// remaining distance to the cutoffs.
type SentimentStage struct {
	completer interfaces.Completer
}

func NewSentimentStage(c interfaces.Completer) *SentimentStage {
	return &SentimentStage{completer: c}
}

func (s *SentimentStage) Run(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	articles, _ := workflow.ContextValue[[]types.NewsArticle](snap, KeyNews)
	count, _ := workflow.ContextValue[int](snap, KeyNewsCount)
	if count <= 0 {
		count = defaultNewsCount
	}

	recent := recentArticles(articles, newsWindow)
	if len(recent) == 0 {
		out := &workflow.StageOutput{
			Agent:      StageSentiment,
			Signal:     string(types.Neutral),
			Confidence: 0,
			Reasoning:  "No recent news available, defaulting to neutral sentiment",
		}
		return workflow.Delta{Output: out, Context: map[string]any{KeySentiment: 0.0}}, nil
	}

	score, ok := s.newsSentiment(ctx, recent, count)
	if !ok {
		out := &workflow.StageOutput{
			Agent:      StageSentiment,
			Signal:     string(types.Neutral),
			Confidence: 0,
			Reasoning:  fmt.Sprintf("Sentiment analysis unavailable for %d recent articles, defaulting to neutral", len(recent)),
		}
		return workflow.Delta{Output: out, Context: map[string]any{KeySentiment: 0.0}}, nil
	}

	signal, confidence := types.Neutral, 1-math.Abs(score)
	switch {
	case score >= 0.5:
		signal, confidence = types.Bullish, math.Abs(score)
	case score <= -0.5:
		signal, confidence = types.Bearish, math.Abs(score)
	}

	out := &workflow.StageOutput{
		Agent:      StageSentiment,
		Signal:     string(signal),
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Based on %d recent news articles, sentiment score: %.2f", len(recent), score),
		Details:    map[string]any{"sentiment_score": score, "article_count": len(recent)},
	}
	return workflow.Delta{Output: out, Context: map[string]any{KeySentiment: score}}, nil
}

// newsSentiment asks the reasoner for a single score in [-1,1]. The second
// return is false when the call fails or the reply is not a number.
func (s *SentimentStage) newsSentiment(ctx context.Context, articles []types.NewsArticle, limit int) (float64, bool) {
	messages := []types.Message{
		{Role: "system", Content: sentimentSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Score the sentiment of the following news about the company:\n\n%s\n\nReply with a single number between -1 and 1, nothing else.",
			newsDigest(articles, limit))},
	}
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		logger.Warn(ctx, "Sentiment completion failed", "error", err.Error())
		return 0, false
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		logger.Warn(ctx, "Sentiment score unparsable", "raw", strings.TrimSpace(text))
		return 0, false
	}
	return clamp(score, -1, 1), true
}

// newsDigest renders up to limit articles in the block format the analysis
// prompts share.
func newsDigest(articles []types.NewsArticle, limit int) string {
	if limit > len(articles) {
		limit = len(articles)
	}
	var b strings.Builder
	for i := 0; i < limit; i++ {
		a := articles[i]
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Title: %s\nSource: %s\nTime: %s\nContent: %s",
			a.Title, a.Source, publishedLabel(a.PublishedAt), a.Content)
	}
	return b.String()
}

func publishedLabel(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("2006-01-02 15:04:05")
}
