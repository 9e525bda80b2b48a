package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/llm"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
	"stock-advisor/internal/workflow"
)

const portfolioSystemPrompt = `You are a portfolio manager making the final trading decision.
Make the call from the team's analysis while strictly adhering to risk management constraints.

RISK MANAGEMENT CONSTRAINTS:
- You MUST NOT exceed the max position size specified by the risk manager
- You MUST follow the trading action (buy/sell/hold) recommended by risk management
- These are hard constraints that cannot be overridden by other signals

When weighing the different signals for direction and timing:
1. Valuation analysis (30% weight): primary driver of fair value and entry/exit points
2. Fundamental analysis (25% weight): business quality and long-term conviction
3. Technical analysis (20% weight): secondary confirmation and timing
4. Macro analysis (15% weight, split across the macro analyst and the market news read): environment tailwind or headwind
5. Sentiment analysis (10% weight): final sizing consideration within risk limits

Trading rules:
- Never exceed the risk management position limit
- Only buy if there is available cash; quantity x price must stay within cash
- Only sell if there are shares to sell; quantity must stay within the current position

Reply with JSON containing exactly these fields: action ("buy" | "sell" | "hold"), quantity (non-negative integer), confidence (float between 0 and 1), reasoning (concise explanation including how you weighted the signals). Do not include any JSON markdown.`

// reconcilerSources lists the upstream signals the final decision weighs,
// in prompt order.
var reconcilerSources = []struct {
	stage string
	label string
}{
	{StageTechnical, "Technical Analysis"},
	{StageFundamentals, "Fundamental Analysis"},
	{StageSentiment, "Sentiment Analysis"},
	{StageValuation, "Valuation Analysis"},
	{StageMacroAnalyst, "Macro Analysis"},
	{StageMacroNews, "Market News Analysis"},
	{StageRiskManager, "Risk Management"},
}

// PortfolioManagerStage reconciles every upstream signal plus the risk
// constraints into the final order. The risk manager's hold or reduce
// verdict and its position cap are never overridden, and the result never
// buys beyond cash or sells beyond the held position.
type PortfolioManagerStage struct {
	completer interfaces.Completer
}

func NewPortfolioManagerStage(c interfaces.Completer) *PortfolioManagerStage {
	return &PortfolioManagerStage{completer: c}
}

func (s *PortfolioManagerStage) Run(ctx context.Context, snap *workflow.Snapshot) (workflow.Delta, error) {
	outputs := make(map[string]workflow.StageOutput, len(reconcilerSources))
	for _, src := range reconcilerSources {
		out, err := snap.Require(StagePortfolioManager, src.stage)
		if err != nil {
			return workflow.Delta{}, err
		}
		outputs[src.stage] = out
	}

	portfolio, _ := workflow.ContextValue[types.Portfolio](snap, KeyPortfolio)
	candles, _ := workflow.ContextValue[[]types.Candle](snap, KeyPrices)
	lastClose := latest(closesOf(candles))

	risk := outputs[StageRiskManager]
	riskAction := types.Action(risk.Signal)
	maxPosition := detailFloat(risk.Details, "max_position_size")

	agentSignals := make([]types.AgentSignal, 0, len(reconcilerSources))
	for _, src := range reconcilerSources {
		out := outputs[src.stage]
		agentSignals = append(agentSignals, types.AgentSignal{
			AgentName:  out.Agent,
			Signal:     out.Signal,
			Confidence: out.Confidence,
		})
	}

	decision, degraded := s.llmDecision(ctx, outputs, portfolio, maxPosition, lastClose)
	if degraded {
		decision = fallbackDecision(risk, maxPosition)
	}

	decision.Action, decision.Quantity = constrain(
		decision.Action, decision.Quantity, riskAction, maxPosition, lastClose, portfolio)
	decision.Confidence = clamp(decision.Confidence, 0, 1)
	decision.AgentSignals = agentSignals

	out := &workflow.StageOutput{
		Agent:      StagePortfolioManager,
		Signal:     string(decision.Action),
		Confidence: decision.Confidence,
		Reasoning:  decision.Reasoning,
		Details: map[string]any{
			"quantity":          decision.Quantity,
			"max_position_size": finite(maxPosition),
			"agent_signals":     agentSignals,
			"degraded":          degraded,
		},
	}
	return workflow.Delta{
		Output:  out,
		Context: map[string]any{KeyDecision: decision},
	}, nil
}

// llmDecision asks the reasoner for the final order. The second return is
// true when the conservative fallback must be used instead.
func (s *PortfolioManagerStage) llmDecision(ctx context.Context, outputs map[string]workflow.StageOutput, portfolio types.Portfolio, maxPosition, lastClose float64) (types.Decision, bool) {
	var b strings.Builder
	b.WriteString("Based on the team's analysis below, make your trading decision.\n")
	for _, src := range reconcilerSources {
		out := outputs[src.stage]
		payload, err := json.Marshal(out)
		if err != nil {
			payload = []byte(fmt.Sprintf("%v", out))
		}
		fmt.Fprintf(&b, "\n%s Trading Signal: %s\n", src.label, payload)
	}
	fmt.Fprintf(&b, `
Here is the current portfolio:
Cash: %.2f
Current Position: %d shares
Last Close: %.2f
Max Position Size: %.2f

Only include the action, quantity, confidence and reasoning in your output as JSON. Do not include any JSON markdown.
Remember, the action must be either buy, sell, or hold.
You can only buy if you have available cash.
You can only sell if you have shares in the portfolio to sell.`,
		portfolio.Cash, portfolio.Stock, lastClose, maxPosition)

	messages := []types.Message{
		{Role: "system", Content: portfolioSystemPrompt},
		{Role: "user", Content: b.String()},
	}
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		logger.Warn(ctx, "Decision completion failed", "error", err.Error())
		return types.Decision{}, true
	}
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return types.Decision{}, true
	}
	var parsed struct {
		Action     string  `json:"action"`
		Quantity   float64 `json:"quantity"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn(ctx, "Decision unparsable", "error", err.Error())
		return types.Decision{}, true
	}
	action := types.Action(strings.ToLower(strings.TrimSpace(parsed.Action)))
	if action != types.Buy && action != types.Sell && action != types.Hold {
		logger.Warn(ctx, "Decision action invalid", "action", parsed.Action)
		return types.Decision{}, true
	}
	return types.Decision{
		Action:     action,
		Quantity:   int(parsed.Quantity),
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
	}, false
}

// fallbackDecision is the documented conservative answer when the
// reasoner fails: no position change, with confidence lifted to the risk
// manager's own conviction when that is stronger.
func fallbackDecision(risk workflow.StageOutput, maxPosition float64) types.Decision {
	confidence := 0.7
	if risk.Confidence > confidence {
		confidence = risk.Confidence
	}
	return types.Decision{
		Action:     types.Hold,
		Quantity:   0,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("External reasoning unavailable, holding position. Risk manager recommends %s with position cap %.2f",
			risk.Signal, maxPosition),
	}
}

// constrain applies the non-overridable risk constraints and the
// cash/position bounds to a proposed order.
func constrain(action types.Action, qty int, riskAction types.Action, maxPosition, price float64, pf types.Portfolio) (types.Action, int) {
	if qty < 0 {
		qty = 0
	}
	switch riskAction {
	case types.Hold:
		return types.Hold, 0
	case types.Reduce:
		if action != types.Sell {
			return types.Hold, 0
		}
	}
	switch action {
	case types.Buy:
		if price <= 0 {
			return types.Hold, 0
		}
		limit := int(maxPosition / price)
		if affordable := int(pf.Cash / price); affordable < limit {
			limit = affordable
		}
		if qty > limit {
			qty = limit
		}
		if qty <= 0 {
			return types.Hold, 0
		}
		return types.Buy, qty
	case types.Sell:
		if qty > pf.Stock {
			qty = pf.Stock
		}
		if qty <= 0 {
			return types.Hold, 0
		}
		return types.Sell, qty
	default:
		return types.Hold, 0
	}
}
