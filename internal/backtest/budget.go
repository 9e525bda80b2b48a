package backtest

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// CallBudget spaces engine invocations to fit the data providers' rate
// contract: a bounded number of calls per rolling window, plus a minimum gap
// between consecutive calls. Both constraints must clear before a call runs.
type CallBudget struct {
	window *rate.Limiter
	gap    *rate.Limiter
}

// NewCallBudget allows calls per window with at least minGap between calls.
// Non-positive arguments disable the corresponding constraint.
func NewCallBudget(calls int, window, minGap time.Duration) *CallBudget {
	windowEvery := time.Duration(0)
	if calls > 0 {
		windowEvery = window / time.Duration(calls)
	}
	return &CallBudget{
		window: rate.NewLimiter(rate.Every(windowEvery), max(calls, 1)),
		gap:    rate.NewLimiter(rate.Every(minGap), 1),
	}
}

// Wait blocks until the next call is allowed, or until ctx ends.
func (b *CallBudget) Wait(ctx context.Context) error {
	if err := b.gap.Wait(ctx); err != nil {
		return err
	}
	return b.window.Wait(ctx)
}
