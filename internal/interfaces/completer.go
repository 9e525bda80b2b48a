package interfaces

import (
	"context"

	"stock-advisor/internal/types"
)

// Completer is the external reasoning call every qualitative agent depends on.
// Implementations return the raw model text; callers own schema extraction.
type Completer interface {
	Complete(ctx context.Context, messages []types.Message) (string, error)
}
