package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestPriceHistory_Returns(t *testing.T) {
	h := &PriceHistory{Ticker: "X", Bars: []PriceBar{
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 110},
		{Date: day(2), Close: 99},
	}}

	rets := h.Returns()
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.10, rets[0], 1e-12)
	assert.InDelta(t, -0.10, rets[1], 1e-12)
	assert.Nil(t, (&PriceHistory{Bars: h.Bars[:1]}).Returns())
}

func TestPriceHistory_Validate(t *testing.T) {
	ok := &PriceHistory{Ticker: "X", Bars: []PriceBar{{Date: day(0), Close: 1}, {Date: day(1), Close: 2}}}
	assert.NoError(t, ok.Validate())

	dup := &PriceHistory{Ticker: "X", Bars: []PriceBar{{Date: day(1), Close: 1}, {Date: day(1), Close: 2}}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidHistory)

	nan := &PriceHistory{Ticker: "X", Bars: []PriceBar{{Date: day(0), Close: math.NaN()}}}
	assert.ErrorIs(t, nan.Validate(), ErrInvalidHistory)
}

func TestOptional(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid)
	assert.False(t, Some(math.Inf(1)).Valid)
	assert.Equal(t, 1.0, None().Or(1))
	assert.Equal(t, 2.5, Some(2.5).Or(1))

	_, ok := Some(-1).Positive()
	assert.False(t, ok)
	assert.True(t, math.IsNaN(None().Float()))

	data, err := json.Marshal(struct {
		A Optional `json:"a"`
		B Optional `json:"b"`
	}{A: Some(0.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":0.5,"b":null}`, string(data))

	var back struct {
		A Optional `json:"a"`
		B Optional `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Some(0.5), back.A)
	assert.False(t, back.B.Valid)
}

func TestFundamentals_Sanitize(t *testing.T) {
	f := &Fundamentals{
		Ticker:       "X",
		ROE:          Optional{Value: math.NaN(), Valid: true},
		Beta:         Optional{Value: 1.2, Valid: true},
		DebtToEquity: Optional{Value: math.Inf(-1), Valid: true},
	}
	f.Sanitize()

	assert.False(t, f.ROE.Valid)
	assert.False(t, f.DebtToEquity.Valid)
	assert.True(t, f.Beta.Valid)
	assert.Equal(t, 1, f.PresentCount())
}

func TestFactorVector_JSONKeepsNaNAsNull(t *testing.T) {
	v := FactorVector{"MOM_1M": 0.1, "Vol_30d": math.NaN()}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"MOM_1M":0.1,"Vol_30d":null}`, string(data))

	var back FactorVector
	require.NoError(t, json.Unmarshal(data, &back))
	assert.InDelta(t, 0.1, back["MOM_1M"], 1e-12)
	assert.True(t, math.IsNaN(back["Vol_30d"]))
	assert.True(t, math.IsNaN(back.Get("missing")))
}

func TestFactorTable(t *testing.T) {
	table := FactorTable{
		"MSFT": {"a": 1},
		"AAPL": {"a": 2, "b": 3},
	}

	assert.Equal(t, []string{"AAPL", "MSFT"}, table.Tickers())
	assert.Equal(t, []string{"a", "b"}, table.Columns())

	col := table.Column("b")
	assert.Equal(t, 3.0, col[0])
	assert.True(t, math.IsNaN(col[1]))
}

func TestWeightVector_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights WeightVector
		wantErr bool
	}{
		{"exact", WeightVector{"a": 0.5, "b": 0.5}, false},
		{"within tolerance", WeightVector{"a": 0.5, "b": 0.505}, false},
		{"too high", WeightVector{"a": 0.6, "b": 0.6}, true},
		{"too low", WeightVector{"a": 0.4}, true},
		{"empty", WeightVector{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var wErr *InvalidWeightsError
			require.True(t, errors.As(err, &wErr))
			assert.InDelta(t, tt.weights.Sum(), wErr.Sum, 1e-12)
			assert.ErrorIs(t, err, ErrInvalidWeights)
		})
	}
}

func TestWeightVector_Normalized(t *testing.T) {
	w := WeightVector{"a": 1.12 * 0.5, "b": 1.12 * 0.5}.Normalized()
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
	assert.InDelta(t, 0.5, w["a"], 1e-12)
}

func TestWeightVector_SumIsOrderIndependent(t *testing.T) {
	w := WeightVector{}
	for i := 0; i < 40; i++ {
		w[fmt.Sprintf("f%02d", i)] = 0.1 + float64(i)*1e-3
	}

	first := math.Float64bits(w.Sum())
	for i := 0; i < 200; i++ {
		require.Equal(t, first, math.Float64bits(w.Sum()))
	}
	assert.Equal(t, "f00", w.Names()[0])
	assert.Equal(t, "f39", w.Names()[39])
}

func TestInsufficientDataError(t *testing.T) {
	err := fmt.Errorf("compute: %w", &InsufficientDataError{Ticker: "X", Bars: 10, Required: MinHistoryBars})
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, err.Error(), "10 bars")
}

func TestRanking_TopNAndRows(t *testing.T) {
	r := &Ranking{Scores: []CompositeScore{
		{Ticker: "B", Rank: 1, Score: 2, Breakdown: FactorVector{"a": 1}},
		{Ticker: "A", Rank: 2, Score: 1, Breakdown: FactorVector{"a": 0}},
	}}

	top := r.TopN(1)
	require.Len(t, top, 1)
	assert.Equal(t, "B", top[0].Ticker)
	assert.Len(t, r.TopN(0), 2)
	assert.Len(t, r.TopN(10), 2)

	rows := r.Rows()
	rows[0].Factors["a"] = 99
	assert.Equal(t, 1.0, r.Scores[0].Breakdown["a"], "rows must not alias the ranking")

	s, ok := r.Find("A")
	require.True(t, ok)
	assert.Equal(t, 2, s.Rank)
	assert.True(t, s.IsTopRanked(2))
	assert.False(t, s.IsTopRanked(1))
}
