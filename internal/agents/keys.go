package agents

// Stage names as they appear in workflow outputs, logs and events.
const (
	StageMarketData       = "market_data"
	StageTechnical        = "technical_analyst"
	StageFundamentals     = "fundamentals_analyst"
	StageSentiment        = "sentiment_analyst"
	StageValuation        = "valuation_analyst"
	StageMacroNews        = "macro_news_analyst"
	StageResearcherBull   = "researcher_bull"
	StageResearcherBear   = "researcher_bear"
	StageDebateRoom       = "debate_room"
	StageRiskManager      = "risk_manager"
	StageMacroAnalyst     = "macro_analyst"
	StagePortfolioManager = "portfolio_manager"
)

// Context keys. Disjoint stages write disjoint keys; the market data stage
// seeds most of them before the analyst fan-out.
const (
	KeyTicker     = "ticker"
	KeyStartDate  = "start_date"
	KeyEndDate    = "end_date"
	KeyPrices     = "prices"
	KeyPortfolio  = "portfolio"
	KeyMetrics    = "financial_metrics"
	KeyLineItems  = "line_items"
	KeyMarketCap  = "market_cap"
	KeyNews       = "news"
	KeyNewsCount  = "news_count"
	KeyMarketNews = "market_news"
	KeySentiment  = "sentiment_score"
	KeyDebate     = "debate_analysis"
	KeyDecision   = "decision"
)
