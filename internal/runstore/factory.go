package runstore

import (
	"context"

	"stock-advisor/internal/store"
)

// New selects the history backend from config. Config validation restricts
// monitor.store to memory or redis.
func New(ctx context.Context, cfg *store.Config) (Store, error) {
	switch cfg.Monitor.Store {
	case "redis":
		return NewRedisStore(ctx, cfg.Monitor.RedisAddr)
	default:
		return NewMemoryStore(), nil
	}
}
