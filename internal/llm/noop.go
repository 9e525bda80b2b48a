package llm

import (
	"context"

	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
)

// NoopCompleter is the fallback completer used when no LLM is configured.
// It reports no opinion, which drives every consumer to its documented
// deterministic fallback.
type NoopCompleter struct{}

func NewNoopCompleter() *NoopCompleter {
	return &NoopCompleter{}
}

func (n *NoopCompleter) Complete(ctx context.Context, msgs []types.Message) (string, error) {
	logger.Debug(ctx, "Noop completer called - returning no opinion", "messages", len(msgs))
	return "", nil
}
