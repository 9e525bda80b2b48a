package llmobs

import (
	"context"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

// observableCompleter wraps a Completer with observability (logging & tracing)
type observableCompleter struct {
	completer interfaces.Completer
}

// Compile-time interface check
var _ interfaces.Completer = (*observableCompleter)(nil)

// Wrap wraps a completer with observability middleware
func Wrap(completer interfaces.Completer) interfaces.Completer {
	return &observableCompleter{
		completer: completer,
	}
}

// Complete performs a completion with observability
func (oc *observableCompleter) Complete(ctx context.Context, msgs []types.Message) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"messages", len(msgs),
	)

	text, err := oc.completer.Complete(ctx, msgs)
	if err != nil {
		// Use ErrorWithErrSkip(1) to report the actual caller
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"messages", len(msgs),
		)
		return "", err
	}

	// Log result size only - completions can be large and quote input data
	logger.InfoSkip(ctx, 1, "Completion received",
		"messages", len(msgs),
		"chars", len(text),
	)

	return text, nil
}
