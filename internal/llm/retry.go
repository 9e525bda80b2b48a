package llm

import (
	"context"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
)

// retryingCompleter retries transient completion failures with exponential
// backoff before giving up and surfacing the last error.
type retryingCompleter struct {
	inner    interfaces.Completer
	attempts int
	base     time.Duration
}

var _ interfaces.Completer = (*retryingCompleter)(nil)

// WithRetries wraps a completer so each Complete call gets up to attempts
// tries, delayed base, 2*base, 4*base, ... between them.
func WithRetries(inner interfaces.Completer, attempts int, base time.Duration) interfaces.Completer {
	if attempts < 1 {
		attempts = 1
	}
	return &retryingCompleter{inner: inner, attempts: attempts, base: base}
}

func (r *retryingCompleter) Complete(ctx context.Context, msgs []types.Message) (string, error) {
	var lastErr error
	delay := r.base
	for attempt := 1; attempt <= r.attempts; attempt++ {
		text, err := r.inner.Complete(ctx, msgs)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if attempt == r.attempts {
			break
		}
		logger.Warn(ctx, "Completion failed, retrying",
			"attempt", attempt,
			"max_attempts", r.attempts,
			"delay", delay.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}
