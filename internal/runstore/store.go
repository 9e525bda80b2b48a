// Package runstore keeps the run history served by the monitor API. Records
// are built incrementally from lifecycle events, so every write is an upsert:
// a store that comes up mid-run still captures the tail of that run.
package runstore

import (
	"context"
	"errors"
	"time"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// ErrRunNotFound indicates no run exists under the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is one analysis run as the monitor exposes it. Agents holds the
// per-stage outputs in completion order and is only populated by RunByID.
type RunRecord struct {
	RunID       string                 `json:"run_id"`
	Ticker      string                 `json:"ticker"`
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	DurationMs  int64                  `json:"duration_ms,omitempty"`
	Decision    *types.Decision        `json:"decision,omitempty"`
	FailedStage string                 `json:"failed_stage,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Agents      []workflow.StageOutput `json:"agents,omitempty"`
}

// Store persists run history for the monitor.
type Store interface {
	StartRun(ctx context.Context, runID, ticker string, startedAt time.Time) error
	RecordStage(ctx context.Context, runID, ticker string, out workflow.StageOutput) error
	CompleteRun(ctx context.Context, runID, ticker string, decision types.Decision, durationMs int64) error
	FailRun(ctx context.Context, runID, ticker, stage, message string) error

	// RunByID returns the full record including per-stage outputs.
	RunByID(ctx context.Context, runID string) (RunRecord, error)
	// Runs returns up to limit summaries, newest first, without Agents.
	Runs(ctx context.Context, limit int) ([]RunRecord, error)

	Close() error
}
