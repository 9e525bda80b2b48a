package marketdata

import (
	"fmt"
	"strings"
	"time"

	"stock-advisor/internal/interfaces"
	"stock-advisor/internal/store"
)

// NewPriceProvider builds the configured candle source wrapped with the
// response cache.
func NewPriceProvider(cfg *store.Config) (interfaces.PriceProvider, error) {
	var inner interfaces.PriceProvider
	switch strings.ToUpper(cfg.Data.PriceProvider) {
	case "YAHOO", "":
		inner = NewYahooProvider()
	case "KITE":
		kp, err := NewKiteProvider(cfg.Data.Exchange)
		if err != nil {
			return nil, err
		}
		inner = kp
	case "STATIC":
		inner = NewStaticProvider()
	default:
		return nil, fmt.Errorf("unknown price provider: %s", cfg.Data.PriceProvider)
	}
	ttl := time.Duration(cfg.Data.CacheTTLMinutes) * time.Minute
	return WithCache(inner, ttl), nil
}

// NewFundamentalsProvider returns the statements client when an endpoint is
// configured and the synthetic provider otherwise.
func NewFundamentalsProvider(cfg *store.Config) interfaces.FundamentalsProvider {
	if cfg.Data.StatementsURL == "" {
		return NewStaticProvider()
	}
	ttl := time.Duration(cfg.Data.CacheTTLMinutes) * time.Minute
	return NewScreenerProvider(cfg.Data.StatementsURL, ttl)
}
