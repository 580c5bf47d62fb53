package quality

import (
	"time"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/s0_data/collector"
)

// Coverage keys
const (
	CoveragePrice        = "price"
	CoverageHistory      = "history"
	CoverageVolume       = "volume"
	CoverageFundamentals = "fundamentals"
)

// Snapshot summarizes how much of a universe was collected
type Snapshot struct {
	Universe     string             `json:"universe"`
	Date         time.Time          `json:"date"`
	TotalTickers int                `json:"total_tickers"`
	ValidTickers int                `json:"valid_tickers"` // enough history to be scored
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage        float64 `yaml:"min_price_coverage"`        // 0.90
	MinHistoryCoverage      float64 `yaml:"min_history_coverage"`      // 0.80
	MinFundamentalsCoverage float64 `yaml:"min_fundamentals_coverage"` // 0 (optional source)
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:   0.90,
		MinHistoryCoverage: 0.80,
	}
}

// Gate validates collection coverage before ranking.
// A failed gate is reported, the run still proceeds with what was collected.
// ⭐ SSOT: S0 → S1 품질 검증
type Gate struct {
	config Config
}

// NewGate creates a new quality gate
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Check computes coverage of a collection run
func (g *Gate) Check(universe string, date time.Time, results []collector.FetchResult) *Snapshot {
	snapshot := &Snapshot{
		Universe:     universe,
		Date:         date,
		TotalTickers: len(results),
		Coverage:     make(map[string]float64),
	}

	if len(results) == 0 {
		return snapshot
	}

	var priced, history, volume, fundamentals int
	for _, r := range results {
		if r.Priced() {
			priced++
			if r.History.Len() >= contracts.MinHistoryBars {
				history++
			}
			if last := r.History.Bars[r.History.Len()-1]; last.Volume > 0 {
				volume++
			}
		}
		if r.Fundamentals != nil {
			fundamentals++
		}
	}

	total := float64(len(results))
	snapshot.Coverage[CoveragePrice] = float64(priced) / total
	snapshot.Coverage[CoverageHistory] = float64(history) / total
	snapshot.Coverage[CoverageVolume] = float64(volume) / total
	snapshot.Coverage[CoverageFundamentals] = float64(fundamentals) / total
	snapshot.ValidTickers = history

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.Coverage[CoveragePrice] >= g.config.MinPriceCoverage &&
		snapshot.Coverage[CoverageHistory] >= g.config.MinHistoryCoverage &&
		snapshot.Coverage[CoverageFundamentals] >= g.config.MinFundamentalsCoverage

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *Gate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := []struct {
		key    string
		weight float64
	}{
		{CoveragePrice, 0.40},
		{CoverageHistory, 0.30},
		{CoverageVolume, 0.10},
		{CoverageFundamentals, 0.20},
	}

	score := 0.0
	for _, w := range weights {
		score += coverage[w.key] * w.weight
	}
	return score
}
