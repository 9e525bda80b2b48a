package engine

import (
	"stock-advisor/internal/agents"
	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/workflow"
)

// primaryAnalysts is the fan-out both researchers read in full.
var primaryAnalysts = []string{
	agents.StageTechnical,
	agents.StageFundamentals,
	agents.StageSentiment,
	agents.StageValuation,
}

// buildGraph assembles the static analysis DAG. Declaration order is
// cosmetic; scheduling follows the dependency lists alone.
func buildGraph(completer interfaces.Completer, prices interfaces.PriceProvider, fundamentals interfaces.FundamentalsProvider, news interfaces.NewsProvider) (*workflow.Graph, error) {
	marketData := agents.NewMarketDataStage(prices, fundamentals, news)
	sentiment := agents.NewSentimentStage(completer)
	debate := agents.NewDebateRoomStage(completer)
	macro := agents.NewMacroAnalystStage(completer)
	macroNews := agents.NewMacroNewsStage(completer)
	portfolio := agents.NewPortfolioManagerStage(completer)

	return workflow.NewGraph(
		workflow.Stage{Name: agents.StageMarketData, Run: marketData.Run},
		workflow.Stage{Name: agents.StageTechnical, Deps: []string{agents.StageMarketData}, Run: agents.TechnicalAnalyst},
		workflow.Stage{Name: agents.StageFundamentals, Deps: []string{agents.StageMarketData}, Run: agents.FundamentalsAnalyst},
		workflow.Stage{Name: agents.StageSentiment, Deps: []string{agents.StageMarketData}, Run: sentiment.Run},
		workflow.Stage{Name: agents.StageValuation, Deps: []string{agents.StageMarketData}, Run: agents.ValuationAnalyst},
		workflow.Stage{Name: agents.StageMacroNews, Deps: []string{agents.StageMarketData}, Run: macroNews.Run},
		workflow.Stage{Name: agents.StageResearcherBull, Deps: primaryAnalysts, Run: agents.ResearcherBull},
		workflow.Stage{Name: agents.StageResearcherBear, Deps: primaryAnalysts, Run: agents.ResearcherBear},
		workflow.Stage{Name: agents.StageDebateRoom, Deps: []string{agents.StageResearcherBull, agents.StageResearcherBear}, Run: debate.Run},
		workflow.Stage{Name: agents.StageRiskManager, Deps: []string{agents.StageDebateRoom}, Run: agents.RiskManager},
		workflow.Stage{Name: agents.StageMacroAnalyst, Deps: []string{agents.StageRiskManager}, Run: macro.Run},
		workflow.Stage{Name: agents.StagePortfolioManager, Deps: []string{agents.StageMacroAnalyst, agents.StageMacroNews}, Run: portfolio.Run},
	)
}
