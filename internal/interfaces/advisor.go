package interfaces

import (
	"context"

	"stock-advisor/internal/types"
)

// Advisor runs one full analysis workflow and returns the final decision.
type Advisor interface {
	Run(ctx context.Context, req types.RunRequest) (types.Decision, error)
}
