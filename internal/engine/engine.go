package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stock-advisor/internal/agents"
	"stock-advisor/internal/events"
	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

// Engine runs the full analysis graph for one ticker and returns the
// reconciled trading decision. It is safe for concurrent runs: the graph
// is immutable and each run gets its own executor state.
type Engine struct {
	graph *workflow.Graph
	bus   *events.Bus
}

var _ interfaces.Advisor = (*Engine)(nil)

type Option func(*Engine)

// WithBus publishes run lifecycle events on the given bus.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

func New(completer interfaces.Completer, prices interfaces.PriceProvider, fundamentals interfaces.FundamentalsProvider, news interfaces.NewsProvider, opts ...Option) (*Engine, error) {
	graph, err := buildGraph(completer, prices, fundamentals, news)
	if err != nil {
		return nil, fmt.Errorf("build analysis graph: %w", err)
	}
	e := &Engine{graph: graph}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Stages returns the stage names of the analysis graph in declaration order.
func (e *Engine) Stages() []string {
	return e.graph.Stages()
}

func (e *Engine) Run(ctx context.Context, req types.RunRequest) (types.Decision, error) {
	if req.Ticker == "" {
		return types.Decision{}, fmt.Errorf("run request has no ticker")
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	meta := workflow.RunMetadata{
		RunID:     runID,
		Ticker:    req.Ticker,
		Verbose:   req.Verbose,
		StartedAt: time.Now().UTC(),
	}
	seed := map[string]any{
		agents.KeyTicker:    req.Ticker,
		agents.KeyStartDate: req.StartDate,
		agents.KeyEndDate:   req.EndDate,
		agents.KeyPortfolio: req.Portfolio,
		agents.KeyNewsCount: req.NewsCount,
	}

	e.publish(ctx, events.RunStarted{RunID: meta.RunID, Ticker: meta.Ticker, StartedAt: meta.StartedAt})

	executor := workflow.NewExecutor(e.graph, workflow.WithStageHook(func(m workflow.RunMetadata, out workflow.StageOutput) {
		logger.Stage(ctx, m.RunID, out.Agent, out.Signal, out.Confidence)
		// Risk confidence is score/10; 0.7 and up forces reduce or hold.
		if out.Agent == agents.StageRiskManager && out.Confidence >= 0.7 {
			logger.Risk(ctx, m.Ticker, "action_override",
				"run_id", m.RunID,
				"allowed_action", out.Signal,
				"confidence", out.Confidence,
			)
		}
		e.publish(ctx, events.StageCompleted{RunID: m.RunID, Ticker: m.Ticker, Output: out})
	}))

	result, err := executor.Run(ctx, meta, seed)
	if err != nil {
		stage := ""
		var runErr *workflow.RunError
		if errors.As(err, &runErr) {
			stage = runErr.Stage
		}
		e.publish(ctx, events.RunFailed{RunID: meta.RunID, Ticker: meta.Ticker, Stage: stage, Error: err.Error()})
		return types.Decision{}, err
	}

	decision, ok := result.Context[agents.KeyDecision].(types.Decision)
	if !ok {
		err := fmt.Errorf("run %s produced no decision: graph wiring bug", meta.RunID)
		e.publish(ctx, events.RunFailed{RunID: meta.RunID, Ticker: meta.Ticker, Stage: agents.StagePortfolioManager, Error: err.Error()})
		return types.Decision{}, err
	}

	logger.Decision(ctx, meta.Ticker, string(decision.Action), decision.Confidence, decision.Reasoning,
		"run_id", meta.RunID,
		"quantity", decision.Quantity,
	)
	e.publish(ctx, events.RunCompleted{
		RunID:      meta.RunID,
		Ticker:     meta.Ticker,
		Decision:   decision,
		DurationMs: time.Since(meta.StartedAt).Milliseconds(),
	})
	return decision, nil
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, event); err != nil {
		logger.Warn(ctx, "Run event publish failed",
			"event", string(event.EventType()), "error", err.Error())
	}
}
