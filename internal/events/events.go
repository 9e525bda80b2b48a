// Package events carries the run lifecycle over an in-process pub/sub bus
// so observers such as the monitor service follow runs without coupling to
// the engine.
package events

import (
	"time"

	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// Topic is the single bus topic all run events publish to.
const Topic = "advisor.runs"

const typeMetadataKey = "event_type"

type Type string

const (
	TypeRunStarted     Type = "run.started"
	TypeStageCompleted Type = "run.stage_completed"
	TypeRunCompleted   Type = "run.completed"
	TypeRunFailed      Type = "run.failed"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	EventType() Type
}

// RunStarted announces a new analysis run before any stage launches.
type RunStarted struct {
	RunID     string    `json:"run_id"`
	Ticker    string    `json:"ticker"`
	StartedAt time.Time `json:"started_at"`
}

func (RunStarted) EventType() Type { return TypeRunStarted }

// StageCompleted carries one merged stage output, published in merge order.
type StageCompleted struct {
	RunID  string               `json:"run_id"`
	Ticker string               `json:"ticker"`
	Output workflow.StageOutput `json:"output"`
}

func (StageCompleted) EventType() Type { return TypeStageCompleted }

// RunCompleted carries the final decision of a successful run.
type RunCompleted struct {
	RunID      string         `json:"run_id"`
	Ticker     string         `json:"ticker"`
	Decision   types.Decision `json:"decision"`
	DurationMs int64          `json:"duration_ms"`
}

func (RunCompleted) EventType() Type { return TypeRunCompleted }

// RunFailed reports the stage whose error aborted the run.
type RunFailed struct {
	RunID  string `json:"run_id"`
	Ticker string `json:"ticker"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

func (RunFailed) EventType() Type { return TypeRunFailed }
