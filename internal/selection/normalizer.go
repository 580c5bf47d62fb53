package selection

import (
	"math"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DefaultClip bounds z-scores to ±3 standard deviations
const DefaultClip = 3.0

// Degenerate column reasons
const (
	ReasonZeroVariance      = "zero_variance"
	ReasonUndefinedVariance = "undefined_variance"
)

// Normalizer winsorizes and z-scores every factor column across the universe
// and flips lower-is-better columns so higher is always better.
// ⭐ SSOT: 횡단면 정규화는 여기서만
type Normalizer struct {
	clip          float64
	lowerIsBetter map[string]bool
	logger        *logger.Logger
}

// NewNormalizer creates a normalizer; clip <= 0 uses DefaultClip
func NewNormalizer(clip float64, log *logger.Logger) *Normalizer {
	if clip <= 0 {
		clip = DefaultClip
	}
	return &Normalizer{
		clip:          clip,
		lowerIsBetter: contracts.LowerIsBetter,
		logger:        log,
	}
}

// WinsorizeZScore z-scores a column and clips it to ±clip.
// ±Inf become NaN and NaN entries stay NaN. When the sample std is 0 or
// undefined every finite entry becomes 0 and reason names the cause.
func WinsorizeZScore(values []float64, clip float64) (out []float64, reason string) {
	out = make([]float64, len(values))

	var finite []float64
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	m := mean(finite)
	std := sampleStd(finite)

	switch {
	case math.IsNaN(std):
		reason = ReasonUndefinedVariance
	case std == 0:
		reason = ReasonZeroVariance
	}

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = math.NaN()
			continue
		}
		if reason != "" {
			out[i] = 0
			continue
		}
		z := (v - m) / std
		out[i] = math.Max(-clip, math.Min(clip, z))
	}
	return out, reason
}

// Normalize returns a new table of normalized values plus the degenerate columns.
// Statistics accumulate over tickers in sorted order, so the result does not
// depend on how the table was built.
func (n *Normalizer) Normalize(table contracts.FactorTable) (contracts.FactorTable, []contracts.DegenerateColumnWarning) {
	tickers := table.Tickers()
	out := make(contracts.FactorTable, len(tickers))
	for _, t := range tickers {
		out[t] = make(contracts.FactorVector)
	}

	var warnings []contracts.DegenerateColumnWarning
	for _, col := range table.Columns() {
		normalized, reason := WinsorizeZScore(table.Column(col), n.clip)
		if reason != "" {
			warnings = append(warnings, contracts.DegenerateColumnWarning{Column: col, Reason: reason})
			n.logger.WithFields(map[string]interface{}{
				"column": col,
				"reason": reason,
			}).Warn("Degenerate factor column, contributing zero")
		}

		flip := n.lowerIsBetter[col]
		for i, t := range tickers {
			v := normalized[i]
			// 0은 부호를 바꾸지 않음 (-0 방지)
			if flip && v != 0 && !math.IsNaN(v) {
				v = -v
			}
			out[t][col] = v
		}
	}

	return out, warnings
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
