package marketdata

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

// KiteProvider fetches daily candles from the Zerodha Kite historical API.
// Requires KITE_API_KEY and KITE_ACCESS_TOKEN in the environment.
type KiteProvider struct {
	kc       *kiteconnect.Client
	exchange string

	mu     sync.Mutex
	tokens map[string]int
}

func NewKiteProvider(exchange string) (*KiteProvider, error) {
	apiKey := os.Getenv("KITE_API_KEY")
	accessToken := os.Getenv("KITE_ACCESS_TOKEN")
	if apiKey == "" || accessToken == "" {
		return nil, fmt.Errorf("KITE_API_KEY or KITE_ACCESS_TOKEN missing")
	}

	kc := kiteconnect.New(apiKey)
	kc.SetAccessToken(accessToken)

	return &KiteProvider{
		kc:       kc,
		exchange: exchange,
		tokens:   make(map[string]int),
	}, nil
}

func (k *KiteProvider) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	_, span := trace.StartSpan(ctx, "kite-price-history")
	defer span.End()

	token, err := k.instrumentToken(ticker)
	if err != nil {
		return nil, err
	}

	data, err := k.kc.GetHistoricalData(token, "day", start, end, false, false)
	if err != nil {
		return nil, fmt.Errorf("kite history for %s: %w", ticker, err)
	}

	candles := make([]types.Candle, 0, len(data))
	for _, d := range data {
		candles = append(candles, types.Candle{
			Date:   d.Date.Time,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: int64(d.Volume),
		})
	}
	return candles, nil
}

// instrumentToken resolves a trading symbol through the instruments dump,
// caching the mapping for the process lifetime.
func (k *KiteProvider) instrumentToken(ticker string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if token, ok := k.tokens[ticker]; ok {
		return token, nil
	}

	instruments, err := k.kc.GetInstrumentsByExchange(k.exchange)
	if err != nil {
		return 0, fmt.Errorf("kite instruments for %s: %w", k.exchange, err)
	}
	for _, inst := range instruments {
		k.tokens[inst.Tradingsymbol] = inst.InstrumentToken
	}

	token, ok := k.tokens[ticker]
	if !ok {
		return 0, fmt.Errorf("symbol %s not found on %s", ticker, k.exchange)
	}
	return token, nil
}
