package contracts

import (
	"math"
	"sort"
	"time"
)

// WeightTolerance is how far a weight vector's sum may drift from 1.0
const WeightTolerance = 0.01

// WeightVector maps factor name to its weight in the composite score
type WeightVector map[string]float64

// Names returns the factor names in sorted order
func (w WeightVector) Names() []string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sum returns the total weight, accumulated in sorted name order so the
// result is bit-identical across calls
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, name := range w.Names() {
		total += w[name]
	}
	return total
}

// Validate returns *InvalidWeightsError unless the weights sum to 1 within tolerance
func (w WeightVector) Validate() error {
	sum := w.Sum()
	if math.IsNaN(sum) || math.Abs(sum-1.0) > WeightTolerance {
		return &InvalidWeightsError{Sum: sum}
	}
	return nil
}

// Normalized returns a copy rescaled to sum to 1. A zero sum is returned unchanged.
func (w WeightVector) Normalized() WeightVector {
	sum := w.Sum()
	out := make(WeightVector, len(w))
	for k, v := range w {
		if sum == 0 {
			out[k] = v
			continue
		}
		out[k] = v / sum
	}
	return out
}

// CompositeScore is one ranked ticker
type CompositeScore struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name,omitempty"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"` // 1-based

	// Breakdown holds the raw factor values, Normalized the post-winsorize values
	Breakdown  FactorVector `json:"breakdown"`
	Normalized FactorVector `json:"normalized,omitempty"`
}

// IsTopRanked checks if the ticker is in the top n
func (s *CompositeScore) IsTopRanked(n int) bool {
	return s.Rank > 0 && s.Rank <= n
}

// Ranking is the immutable result of one ranking run. A later run supersedes it.
// ⭐ SSOT: S4 → API/저장소 랭킹 결과 전달
type Ranking struct {
	RunID        string           `json:"run_id"`
	Universe     string           `json:"universe"`
	AsOf         time.Time        `json:"as_of"`
	CreatedAt    time.Time        `json:"created_at"`
	StrategyHash string           `json:"strategy_hash,omitempty"`
	Weights      WeightVector     `json:"weights"`
	Columns      []string         `json:"columns"`
	Scores       []CompositeScore `json:"scores"`
	Degenerate   []string         `json:"degenerate,omitempty"`
}

// Len returns the number of ranked tickers
func (r *Ranking) Len() int {
	return len(r.Scores)
}

// TopN returns the first n scores (all when n <= 0 or n > Len)
func (r *Ranking) TopN(n int) []CompositeScore {
	if n <= 0 || n > len(r.Scores) {
		n = len(r.Scores)
	}
	out := make([]CompositeScore, n)
	copy(out, r.Scores[:n])
	return out
}

// Find returns the score of ticker
func (r *Ranking) Find(ticker string) (CompositeScore, bool) {
	for _, s := range r.Scores {
		if s.Ticker == ticker {
			return s, true
		}
	}
	return CompositeScore{}, false
}

// RankingRow is the persisted/serialized form of one ranked ticker
type RankingRow struct {
	Ticker  string       `json:"ticker"`
	Name    string       `json:"name,omitempty"`
	Rank    int          `json:"rank"`
	Score   float64      `json:"score"`
	Factors FactorVector `json:"factors"`
}

// Rows returns the ranking as rows in rank order
func (r *Ranking) Rows() []RankingRow {
	rows := make([]RankingRow, len(r.Scores))
	for i, s := range r.Scores {
		rows[i] = RankingRow{
			Ticker:  s.Ticker,
			Name:    s.Name,
			Rank:    s.Rank,
			Score:   s.Score,
			Factors: s.Breakdown.Clone(),
		}
	}
	return rows
}

// TickerRankPoint is one ticker's position in a past run
type TickerRankPoint struct {
	RunID        string       `json:"run_id"`
	Universe     string       `json:"universe"`
	AsOf         time.Time    `json:"as_of"`
	Rank         int          `json:"rank"`
	Score        float64      `json:"score"`
	UniverseSize int          `json:"universe_size"`
	Factors      FactorVector `json:"factors,omitempty"`
}
