package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

func TestWinsorizeZScore(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		clip       float64
		wantReason string
		check      func(t *testing.T, out []float64)
	}{
		{
			name:   "two values",
			values: []float64{1, 3},
			clip:   3,
			check: func(t *testing.T, out []float64) {
				assert.InDelta(t, -math.Sqrt2/2, out[0], 1e-12)
				assert.InDelta(t, math.Sqrt2/2, out[1], 1e-12)
			},
		},
		{
			name:       "constant column",
			values:     []float64{5, 5, 5},
			clip:       3,
			wantReason: ReasonZeroVariance,
			check: func(t *testing.T, out []float64) {
				assert.Equal(t, []float64{0, 0, 0}, out)
			},
		},
		{
			name:       "single finite value",
			values:     []float64{math.NaN(), 7},
			clip:       3,
			wantReason: ReasonUndefinedVariance,
			check: func(t *testing.T, out []float64) {
				assert.True(t, math.IsNaN(out[0]))
				assert.Equal(t, 0.0, out[1])
			},
		},
		{
			name:   "infinite becomes NaN",
			values: []float64{math.Inf(1), 1, 2, math.Inf(-1)},
			clip:   3,
			check: func(t *testing.T, out []float64) {
				assert.True(t, math.IsNaN(out[0]))
				assert.True(t, math.IsNaN(out[3]))
				assert.InDelta(t, -math.Sqrt2/2, out[1], 1e-12)
			},
		},
		{
			name:   "outlier clipped",
			values: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100},
			clip:   1.5,
			check: func(t *testing.T, out []float64) {
				assert.Equal(t, 1.5, out[16])
				for _, v := range out {
					assert.LessOrEqual(t, math.Abs(v), 1.5)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, reason := WinsorizeZScore(tt.values, tt.clip)
			require.Len(t, out, len(tt.values))
			assert.Equal(t, tt.wantReason, reason)
			tt.check(t, out)
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(0, logger.Nop())

	table := contracts.FactorTable{
		"AAA": {contracts.FactorMomentum1M: 0.10, contracts.FactorVolatility30: 0.20, contracts.FactorReputation: 0.5},
		"BBB": {contracts.FactorMomentum1M: 0.30, contracts.FactorVolatility30: 0.40, contracts.FactorReputation: 0.5},
	}

	out, warnings := n.Normalize(table)

	// higher raw volatility ends up lower after the flip
	assert.Greater(t, out["BBB"][contracts.FactorMomentum1M], out["AAA"][contracts.FactorMomentum1M])
	assert.Less(t, out["BBB"][contracts.FactorVolatility30], out["AAA"][contracts.FactorVolatility30])

	require.Len(t, warnings, 1)
	assert.Equal(t, contracts.FactorReputation, warnings[0].Column)
	assert.Equal(t, ReasonZeroVariance, warnings[0].Reason)
	assert.Equal(t, 0.0, out["AAA"][contracts.FactorReputation])
	assert.False(t, math.Signbit(out["AAA"][contracts.FactorReputation]))

	// input untouched
	assert.Equal(t, 0.10, table["AAA"][contracts.FactorMomentum1M])
}

func TestNormalizer_MissingCellIsNaN(t *testing.T) {
	n := NewNormalizer(DefaultClip, logger.Nop())

	table := contracts.FactorTable{
		"AAA": {contracts.FactorMomentum1M: 1, contracts.FactorESG: 0.8},
		"BBB": {contracts.FactorMomentum1M: 2},
		"CCC": {contracts.FactorMomentum1M: 3, contracts.FactorESG: 0.2},
	}

	out, warnings := n.Normalize(table)
	assert.Empty(t, warnings)
	assert.True(t, math.IsNaN(out["BBB"][contracts.FactorESG]))
	assert.InDelta(t, 0.0, out["BBB"][contracts.FactorMomentum1M], 1e-12)
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultClip, logger.Nop())

	table := contracts.FactorTable{
		"A": {contracts.FactorMomentum3M: -0.2, contracts.FactorSharpe3M: 1.1},
		"B": {contracts.FactorMomentum3M: 0.05, contracts.FactorSharpe3M: 0.3},
		"C": {contracts.FactorMomentum3M: 0.4, contracts.FactorSharpe3M: -0.7},
	}

	first, _ := n.Normalize(table)
	second, _ := n.Normalize(first)

	for _, ticker := range table.Tickers() {
		for _, col := range table.Columns() {
			assert.InDelta(t, first[ticker][col], second[ticker][col], 1e-9, "%s/%s", ticker, col)
		}
	}
}
