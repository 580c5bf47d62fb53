package selection

import (
	"math"

	"github.com/wonny/quantsnap/internal/contracts"
)

// DefaultWeights returns the 67/33 price/reputation weight table rescaled to sum to 1.
// The raw table sums to 1.12.
func DefaultWeights() contracts.WeightVector {
	raw := contracts.WeightVector{
		// price-derived (67%)
		contracts.FactorMomentum1M:   0.20,
		contracts.FactorMomentum3M:   0.20,
		contracts.FactorSlope50D:     0.10,
		contracts.FactorVolatility30: 0.12,
		contracts.FactorSharpe3M:     0.15,
		contracts.FactorDollarVol20D: 0.08,

		// reputation-derived (33%)
		contracts.FactorReputation:      0.15,
		contracts.FactorESG:             0.03,
		contracts.FactorFinancialHealth: 0.03,
		contracts.FactorMarketPosition:  0.03,
		contracts.FactorGrowthStability: 0.03,
	}
	return raw.Normalized()
}

// ScoreComposer turns normalized factors into one composite score per ticker
// ⭐ SSOT: 종합 점수 계산은 여기서만
type ScoreComposer struct {
	weights contracts.WeightVector
	names   []string
}

// NewScoreComposer validates the weights before anything is scored
func NewScoreComposer(weights contracts.WeightVector) (*ScoreComposer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	return &ScoreComposer{weights: weights, names: weights.Names()}, nil
}

// Score is Σ normalized[f]*w[f]. Columns without weight and NaN values contribute 0.
func (c *ScoreComposer) Score(normalized contracts.FactorVector) float64 {
	score := 0.0
	for _, name := range c.names {
		v, ok := normalized[name]
		if !ok || math.IsNaN(v) {
			continue
		}
		score += v * c.weights[name]
	}
	return score
}

// Compose scores every ticker of a normalized table
func (c *ScoreComposer) Compose(normalized contracts.FactorTable) map[string]float64 {
	out := make(map[string]float64, len(normalized))
	for ticker, vec := range normalized {
		out[ticker] = c.Score(vec)
	}
	return out
}
