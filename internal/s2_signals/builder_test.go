package s2_signals

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

func newTestBuilder(workers int) *Builder {
	log := logger.Nop()
	return NewBuilder(
		NewFactorCalculator(DefaultFactorParams(), log),
		NewReputationAggregator(log),
		workers,
		log,
	)
}

func TestBuilder_Build(t *testing.T) {
	inputs := []TickerData{
		{Ticker: "A", History: historyFrom("A", flatCloses(70, 100), 1000)},
		{Ticker: "B", History: historyFrom("B", linearCloses(70, 100, 121), 1000), Fundamentals: &contracts.Fundamentals{
			Ticker: "B", ROE: contracts.Some(0.2),
		}},
		{Ticker: "SHORT", History: historyFrom("SHORT", flatCloses(10, 5), 1000)},
		{Ticker: "NODATA"},
	}

	res, err := newTestBuilder(2).Build(context.Background(), inputs)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, res.Table.Tickers())
	assert.Equal(t, []string{"NODATA", "SHORT"}, res.DroppedTickers())

	// price and reputation columns are merged into one vector
	b := res.Table["B"]
	assert.Contains(t, b, contracts.FactorMomentum1M)
	assert.Contains(t, b, contracts.FactorReputation)
	assert.Equal(t, 1.0, b[contracts.FactorFinancialHealth])
	assert.Equal(t, NeutralSubScore, res.Table["A"][contracts.FactorReputation])
}

func TestBuilder_DropsUnorderedHistory(t *testing.T) {
	reversed := historyFrom("REV", linearCloses(70, 100, 121), 1000)
	for i, j := 0, len(reversed.Bars)-1; i < j; i, j = i+1, j-1 {
		reversed.Bars[i], reversed.Bars[j] = reversed.Bars[j], reversed.Bars[i]
	}

	inputs := []TickerData{
		{Ticker: "A", History: historyFrom("A", linearCloses(70, 100, 110), 1000)},
		{Ticker: "REV", History: reversed},
	}

	res, err := newTestBuilder(2).Build(context.Background(), inputs)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.Table.Tickers())
	require.Contains(t, res.Dropped, "REV")
	assert.Contains(t, res.Dropped["REV"], "not strictly ascending")
}

func TestBuilder_ResultIndependentOfWorkerCount(t *testing.T) {
	var inputs []TickerData
	for i := 0; i < 25; i++ {
		ticker := fmt.Sprintf("T%02d", i)
		inputs = append(inputs, TickerData{
			Ticker:  ticker,
			History: historyFrom(ticker, linearCloses(80, 50, 50+float64(i)), int64(1000+i)),
		})
	}

	one, err := newTestBuilder(1).Build(context.Background(), inputs)
	require.NoError(t, err)
	many, err := newTestBuilder(8).Build(context.Background(), inputs)
	require.NoError(t, err)

	require.Equal(t, one.Table.Tickers(), many.Table.Tickers())
	for _, ticker := range one.Table.Tickers() {
		assert.Equal(t, one.Table[ticker].Get(contracts.FactorMomentum3M), many.Table[ticker].Get(contracts.FactorMomentum3M))
	}
}

func TestBuilder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder(2).Build(ctx, []TickerData{
		{Ticker: "A", History: historyFrom("A", flatCloses(70, 100), 1000)},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBuilder_DefaultWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, newTestBuilder(0).workers)
}
