package types

import "time"

// Signal is the categorical directional read emitted by analysis agents.
type Signal string

const (
	Bullish Signal = "bullish"
	Bearish Signal = "bearish"
	Neutral Signal = "neutral"
)

// Valid reports whether s is one of the declared signal values.
func (s Signal) Valid() bool {
	return s == Bullish || s == Bearish || s == Neutral
}

// Numeric maps a signal to its scoring weight: bullish=1, bearish=-1, neutral=0.
func (s Signal) Numeric() float64 {
	switch s {
	case Bullish:
		return 1
	case Bearish:
		return -1
	default:
		return 0
	}
}

// Action is the trading verb used by the risk manager and the final decision.
type Action string

const (
	Buy    Action = "buy"
	Sell   Action = "sell"
	Hold   Action = "hold"
	Reduce Action = "reduce"
)

func (a Action) Valid() bool {
	return a == Buy || a == Sell || a == Hold || a == Reduce
}

type Candle struct {
	Date                   time.Time `json:"date"`
	Open, High, Low, Close float64
	Volume                 int64
}

// Portfolio is supplied by the caller and never mutated by the engine.
type Portfolio struct {
	Cash  float64 `json:"cash"`
	Stock int     `json:"stock"`
}

// Value returns cash plus the position marked at the given price.
func (p Portfolio) Value(lastPrice float64) float64 {
	return p.Cash + float64(p.Stock)*lastPrice
}

type NewsArticle struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// FinancialMetrics are the most recent period's ratios used by the
// fundamentals and valuation agents. Zero means unavailable.
type FinancialMetrics struct {
	ReturnOnEquity       float64 `json:"return_on_equity"`
	NetMargin            float64 `json:"net_margin"`
	OperatingMargin      float64 `json:"operating_margin"`
	RevenueGrowth        float64 `json:"revenue_growth"`
	EarningsGrowth       float64 `json:"earnings_growth"`
	BookValueGrowth      float64 `json:"book_value_growth"`
	CurrentRatio         float64 `json:"current_ratio"`
	DebtToEquity         float64 `json:"debt_to_equity"`
	FreeCashFlowPerShare float64 `json:"free_cash_flow_per_share"`
	EarningsPerShare     float64 `json:"earnings_per_share"`
	PriceToEarnings      float64 `json:"pe_ratio"`
	PriceToBook          float64 `json:"pb_ratio"`
	PriceToSales         float64 `json:"ps_ratio"`
}

// LineItems is one reporting period of cash-flow statement entries.
type LineItems struct {
	NetIncome                   float64 `json:"net_income"`
	DepreciationAndAmortization float64 `json:"depreciation_and_amortization"`
	CapitalExpenditure          float64 `json:"capital_expenditure"`
	WorkingCapital              float64 `json:"working_capital"`
	FreeCashFlow                float64 `json:"free_cash_flow"`
}

type AgentSignal struct {
	AgentName  string  `json:"agent_name"`
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
}

// Decision is the terminal output of a run.
type Decision struct {
	Action       Action        `json:"action"`
	Quantity     int           `json:"quantity"`
	Confidence   float64       `json:"confidence"`
	AgentSignals []AgentSignal `json:"agent_signals"`
	Reasoning    string        `json:"reasoning"`
}

// Message is a single chat turn sent to a completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RunRequest seeds one analysis run. RunID is optional; the engine assigns
// one when it is empty, and callers that need to track a run before its
// first event set it themselves.
type RunRequest struct {
	RunID     string    `json:"run_id,omitempty"`
	Ticker    string    `json:"ticker"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Portfolio Portfolio `json:"portfolio"`
	NewsCount int       `json:"news_count"`
	Verbose   bool      `json:"verbose"`
}
