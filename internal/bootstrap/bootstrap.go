// Package bootstrap wires the process-level plumbing every binary shares:
// environment loading, logger, tracer, configuration, and decision log
// retention.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"stock-advisor/internal/declog"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/store"
	"stock-advisor/internal/trace"
)

// Init loads environment variables and starts the logger and tracer.
// A tracer failure is non-fatal.
func Init() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// LoadConfig reads the YAML config at path. A missing file falls back to
// defaults so offline setups work without one.
func LoadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "Config file not found, using defaults", "path", path)
			return store.DefaultConfig(), nil
		}
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// CompressOldLogs gzips decision logs older than the retention window
// when ADVISOR_LOG_RETENTION_DAYS is set.
func CompressOldLogs(ctx context.Context) {
	if v := os.Getenv("ADVISOR_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := declog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old decision logs", "error", err)
		}
	}
}

// Shutdown flushes buffered spans. Log records are unbuffered.
func Shutdown(ctx context.Context) {
	_ = trace.Shutdown(ctx)
}
