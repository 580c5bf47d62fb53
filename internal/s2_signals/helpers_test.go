package s2_signals

import (
	"time"

	"github.com/wonny/quantsnap/internal/contracts"
)

// historyFrom builds a daily history from closes with constant volume
func historyFrom(ticker string, closes []float64, volume int64) *contracts.PriceHistory {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: volume,
		}
	}
	return &contracts.PriceHistory{Ticker: ticker, Bars: bars}
}

func flatCloses(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// linearCloses rises linearly from start to end over n bars
func linearCloses(n int, start, end float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + (end-start)*float64(i)/float64(n-1)
	}
	return out
}
