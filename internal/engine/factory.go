package engine

import (
	"fmt"

	"stock-advisor/internal/engine/engineobs"
	"stock-advisor/internal/events"
	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/llm"
	"stock-advisor/internal/llm/llmobs"
	"stock-advisor/internal/marketdata"
	"stock-advisor/internal/marketdata/marketdataobs"
	"stock-advisor/internal/news"
	"stock-advisor/internal/store"
)

// NewFromConfig assembles an advisor from configuration: the completer and
// data providers come from their factories, each wrapped with observability
// middleware. A nil bus disables event publishing.
func NewFromConfig(cfg *store.Config, bus *events.Bus) (interfaces.Advisor, error) {
	completer, err := llm.NewCompleter(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize completer: %w", err)
	}
	completer = llmobs.Wrap(completer)

	prices, err := marketdata.NewPriceProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize price provider: %w", err)
	}
	prices = marketdataobs.Wrap(prices)

	fundamentals := marketdataobs.WrapFundamentals(marketdata.NewFundamentalsProvider(cfg))
	newsProvider := news.NewService(cfg)

	var opts []Option
	if bus != nil {
		opts = append(opts, WithBus(bus))
	}
	advisor, err := New(completer, prices, fundamentals, newsProvider, opts...)
	if err != nil {
		return nil, err
	}
	return engineobs.Wrap(advisor), nil
}
