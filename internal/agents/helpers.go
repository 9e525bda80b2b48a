package agents

import (
	"math"
	"time"

	"stock-advisor/internal/types"
)

// finite replaces NaN and infinities with zero so stage details stay
// JSON-encodable even on short or degenerate price series.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// recentArticles keeps articles published within the trailing window.
// Articles without a parsable timestamp carry a zero PublishedAt and are
// treated as recent rather than discarded.
func recentArticles(articles []types.NewsArticle, window time.Duration) []types.NewsArticle {
	cutoff := time.Now().Add(-window)
	recent := make([]types.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if a.PublishedAt.IsZero() || a.PublishedAt.After(cutoff) {
			recent = append(recent, a)
		}
	}
	return recent
}

func closesOf(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func highsOf(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func lowsOf(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

func volumesOf(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = float64(c.Volume)
	}
	return out
}
