package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"stock-advisor/internal/trace"
	"stock-advisor/internal/types"
)

// YahooProvider fetches daily candles from Yahoo Finance.
type YahooProvider struct{}

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{}
}

func (y *YahooProvider) PriceHistory(ctx context.Context, ticker string, start, end time.Time) ([]types.Candle, error) {
	_, span := trace.StartSpan(ctx, "yahoo-price-history")
	defer span.End()

	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	candles := make([]types.Candle, 0, 256)
	for iter.Next() {
		bar := iter.Bar()
		candles = append(candles, types.Candle{
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC(),
			Open:   price(bar.Open),
			High:   price(bar.High),
			Low:    price(bar.Low),
			Close:  price(bar.Close),
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo history for %s: %w", ticker, err)
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Date.Before(candles[j].Date) })
	return candles, nil
}

// price rounds a raw quote to four decimal places before converting, since
// Yahoo bars carry float noise in the low digits.
func price(d decimal.Decimal) float64 {
	f, _ := d.Round(4).Float64()
	return f
}
