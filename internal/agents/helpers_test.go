package agents

import (
	"context"
	"time"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// stubCompleter replies with a fixed text or error and remembers the last
// messages it was asked to complete.
type stubCompleter struct {
	reply string
	err   error
	last  []types.Message
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, messages []types.Message) (string, error) {
	s.calls++
	s.last = messages
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func testSnapshot(outputs []workflow.StageOutput, context map[string]any) *workflow.Snapshot {
	meta := workflow.RunMetadata{RunID: "test-run", Ticker: "TEST", StartedAt: time.Now()}
	return workflow.NewSnapshot(meta, outputs, context)
}

// candlesFromCloses builds a daily candle series with a fixed 1.0 range
// around each close and constant volume.
func candlesFromCloses(closes ...float64) []types.Candle {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))
	for i, c := range closes {
		candles[i] = types.Candle{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return candles
}

func withVolumes(candles []types.Candle, volumes ...int64) []types.Candle {
	out := make([]types.Candle, len(candles))
	copy(out, candles)
	for i := range out {
		if i < len(volumes) {
			out[i].Volume = volumes[i]
		}
	}
	return out
}

// rampCloses returns n closes rising by step from start.
func rampCloses(start, step float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

// flatCloses returns n identical closes.
func flatCloses(v float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = v
	}
	return closes
}

func analystOutputs(technical, fundamental, sentiment, valuation workflow.StageOutput) []workflow.StageOutput {
	return []workflow.StageOutput{technical, fundamental, sentiment, valuation}
}

func analystOutput(stage string, signal types.Signal, confidence float64) workflow.StageOutput {
	return workflow.StageOutput{
		Agent:      stage,
		Signal:     string(signal),
		Confidence: confidence,
	}
}
