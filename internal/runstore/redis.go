package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

const (
	indexKey  = "advisor:runs"
	keyPrefix = "advisor:run:"

	// maxIndexed caps how many run IDs the index retains; summaries and
	// agent lists additionally expire after runTTL.
	maxIndexed = 500
	runTTL     = 7 * 24 * time.Hour
)

// RedisStore persists run history in redis so it survives monitor restarts.
// Summaries live under advisor:run:<id>, per-stage outputs in a list under
// advisor:run:<id>:agents, and a sorted set indexes runs by start time.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func runKey(id string) string    { return keyPrefix + id }
func agentsKey(id string) string { return keyPrefix + id + ":agents" }

// mutate loads the summary, applies fn and writes it back, creating the
// record and its index entry on first contact. The monitor's bus consumer
// is the only writer, so load-modify-store does not race.
func (r *RedisStore) mutate(ctx context.Context, runID, ticker string, fn func(*RunRecord)) error {
	rec := RunRecord{RunID: runID, Ticker: ticker, Status: StatusRunning}
	raw, err := r.client.Get(ctx, runKey(runID)).Result()
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return fmt.Errorf("decode run %s: %w", runID, err)
		}
		if rec.Ticker == "" {
			rec.Ticker = ticker
		}
	case errors.Is(err, redis.Nil):
	default:
		return err
	}

	fn(&rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", runID, err)
	}
	if err := r.client.Set(ctx, runKey(runID), data, runTTL).Err(); err != nil {
		return err
	}

	score := rec.StartedAt.UnixMilli()
	if rec.StartedAt.IsZero() {
		score = time.Now().UnixMilli()
	}
	if err := r.client.ZAdd(ctx, indexKey, redis.Z{Score: float64(score), Member: runID}).Err(); err != nil {
		return err
	}
	return r.client.ZRemRangeByRank(ctx, indexKey, 0, int64(-maxIndexed-1)).Err()
}

func (r *RedisStore) StartRun(ctx context.Context, runID, ticker string, startedAt time.Time) error {
	return r.mutate(ctx, runID, ticker, func(rec *RunRecord) {
		rec.StartedAt = startedAt
	})
}

func (r *RedisStore) RecordStage(ctx context.Context, runID, ticker string, out workflow.StageOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode stage output: %w", err)
	}
	if err := r.client.RPush(ctx, agentsKey(runID), data).Err(); err != nil {
		return err
	}
	if err := r.client.Expire(ctx, agentsKey(runID), runTTL).Err(); err != nil {
		return err
	}
	return r.mutate(ctx, runID, ticker, func(*RunRecord) {})
}

func (r *RedisStore) CompleteRun(ctx context.Context, runID, ticker string, decision types.Decision, durationMs int64) error {
	return r.mutate(ctx, runID, ticker, func(rec *RunRecord) {
		rec.Status = StatusCompleted
		rec.Decision = &decision
		rec.DurationMs = durationMs
	})
}

func (r *RedisStore) FailRun(ctx context.Context, runID, ticker, stage, message string) error {
	return r.mutate(ctx, runID, ticker, func(rec *RunRecord) {
		rec.Status = StatusFailed
		rec.FailedStage = stage
		rec.Error = message
	})
}

func (r *RedisStore) RunByID(ctx context.Context, runID string) (RunRecord, error) {
	raw, err := r.client.Get(ctx, runKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, err
	}
	var rec RunRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return RunRecord{}, fmt.Errorf("decode run %s: %w", runID, err)
	}

	items, err := r.client.LRange(ctx, agentsKey(runID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return RunRecord{}, err
	}
	for _, item := range items {
		var out workflow.StageOutput
		if err := json.Unmarshal([]byte(item), &out); err != nil {
			return RunRecord{}, fmt.Errorf("decode stage output for run %s: %w", runID, err)
		}
		rec.Agents = append(rec.Agents, out)
	}
	return rec, nil
}

func (r *RedisStore) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > maxIndexed {
		limit = maxIndexed
	}
	ids, err := r.client.ZRevRange(ctx, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]RunRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := r.client.Get(ctx, runKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			// Expired summary still indexed; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec RunRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
