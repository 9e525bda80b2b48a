package runstore

import (
	"context"
	"sync"
	"time"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// defaultKeep caps the in-memory history; the oldest runs are evicted first.
const defaultKeep = 200

// MemoryStore is the default backend. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*RunRecord
	order []string
	keep  int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*RunRecord),
		keep: defaultKeep,
	}
}

// upsert returns the record for runID, creating and indexing it if needed.
// Callers hold the write lock.
func (m *MemoryStore) upsert(runID, ticker string) *RunRecord {
	if rec, ok := m.runs[runID]; ok {
		if rec.Ticker == "" {
			rec.Ticker = ticker
		}
		return rec
	}
	rec := &RunRecord{RunID: runID, Ticker: ticker, Status: StatusRunning}
	m.runs[runID] = rec
	m.order = append(m.order, runID)
	for len(m.order) > m.keep {
		delete(m.runs, m.order[0])
		m.order = m.order[1:]
	}
	return rec
}

func (m *MemoryStore) StartRun(ctx context.Context, runID, ticker string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.upsert(runID, ticker)
	rec.StartedAt = startedAt
	return nil
}

func (m *MemoryStore) RecordStage(ctx context.Context, runID, ticker string, out workflow.StageOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.upsert(runID, ticker)
	rec.Agents = append(rec.Agents, out)
	return nil
}

func (m *MemoryStore) CompleteRun(ctx context.Context, runID, ticker string, decision types.Decision, durationMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.upsert(runID, ticker)
	rec.Status = StatusCompleted
	rec.Decision = &decision
	rec.DurationMs = durationMs
	return nil
}

func (m *MemoryStore) FailRun(ctx context.Context, runID, ticker, stage, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.upsert(runID, ticker)
	rec.Status = StatusFailed
	rec.FailedStage = stage
	rec.Error = message
	return nil
}

func (m *MemoryStore) RunByID(ctx context.Context, runID string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.runs[runID]
	if !ok {
		return RunRecord{}, ErrRunNotFound
	}
	out := *rec
	out.Agents = append([]workflow.StageOutput(nil), rec.Agents...)
	return out, nil
}

func (m *MemoryStore) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.order) {
		limit = len(m.order)
	}
	out := make([]RunRecord, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := *m.runs[m.order[i]]
		rec.Agents = nil
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
