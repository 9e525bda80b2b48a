package engineobs

import (
	"context"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

type observableAdvisor struct {
	advisor interfaces.Advisor
}

var _ interfaces.Advisor = (*observableAdvisor)(nil)

func Wrap(advisor interfaces.Advisor) interfaces.Advisor {
	return &observableAdvisor{
		advisor: advisor,
	}
}

func (oa *observableAdvisor) Run(ctx context.Context, req types.RunRequest) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Run")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting analysis run",
		"ticker", req.Ticker,
	)

	decision, err := oa.advisor.Run(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Analysis run failed", err,
			"ticker", req.Ticker,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.Decision{}, err
	}

	logger.InfoSkip(ctx, 1, "Analysis run completed",
		"ticker", req.Ticker,
		"action", decision.Action,
		"confidence", decision.Confidence,
		"quantity", decision.Quantity,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return decision, nil
}
