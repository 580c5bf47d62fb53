package selection

import (
	"context"
	"fmt"
	"sort"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// Ranker normalizes a factor table, composes scores and assigns ranks
// ⭐ SSOT: S4 랭킹 로직은 여기서만
type Ranker struct {
	normalizer *Normalizer
	logger     *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(normalizer *Normalizer, log *logger.Logger) *Ranker {
	return &Ranker{
		normalizer: normalizer,
		logger:     log,
	}
}

// RankUniverse ranks every ticker of the table. Invalid weights fail with
// *contracts.InvalidWeightsError before any scoring; an empty table fails
// with contracts.ErrEmptyUniverse. The result is a fresh Ranking that
// shares no maps with the input table.
func (r *Ranker) RankUniverse(ctx context.Context, table contracts.FactorTable, weights contracts.WeightVector) (*contracts.Ranking, error) {
	composer, err := NewScoreComposer(weights)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("rank universe: %w", contracts.ErrEmptyUniverse)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized, warnings := r.normalizer.Normalize(table)
	scores := composer.Compose(normalized)

	ranked := make([]contracts.CompositeScore, 0, len(table))
	for ticker, raw := range table {
		ranked = append(ranked, contracts.CompositeScore{
			Ticker:     ticker,
			Score:      scores[ticker],
			Breakdown:  raw.Clone(),
			Normalized: normalized[ticker],
		})
	}

	// 점수 내림차순, 동점이면 티커 오름차순
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	degenerate := make([]string, len(warnings))
	for i, w := range warnings {
		degenerate[i] = w.Column
	}

	weightsCopy := make(contracts.WeightVector, len(weights))
	for k, v := range weights {
		weightsCopy[k] = v
	}

	r.logger.Ctx(ctx).WithFields(map[string]interface{}{
		"total_tickers": len(ranked),
		"top_ticker":    ranked[0].Ticker,
		"top_score":     ranked[0].Score,
		"degenerate":    len(degenerate),
	}).Info("Ranking completed")

	return &contracts.Ranking{
		Weights:    weightsCopy,
		Columns:    table.Columns(),
		Scores:     ranked,
		Degenerate: degenerate,
	}, nil
}
