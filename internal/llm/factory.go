package llm

import (
	"fmt"
	"strings"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/store"
)

// NewCompleter builds the configured completion client wrapped with the
// configured retry policy.
func NewCompleter(cfg *store.Config) (interfaces.Completer, error) {
	var inner interfaces.Completer
	switch strings.ToUpper(cfg.LLM.Provider) {
	case "OPENAI":
		inner = NewOpenAIClient(cfg)
	case "CLAUDE":
		inner = NewClaudeClient(cfg)
	case "NOOP", "":
		inner = NewNoopCompleter()
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
	base := time.Duration(cfg.LLM.RetryBaseMs) * time.Millisecond
	return WithRetries(inner, cfg.LLM.Retries, base), nil
}
