package s2_signals

import (
	"math"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// NeutralSubScore is used when no metric of a sub-score qualifies
const NeutralSubScore = 0.5

// priceStabilityEpsilon keeps 1/std finite on flat series
const priceStabilityEpsilon = 0.001

// tier maps a value to a score: the first bound the value passes wins
type tier struct {
	bound float64
	score float64
}

// 하한 기준 (값이 bound보다 커야 점수 획득)
func scoreAbove(v float64, tiers []tier, floor float64) float64 {
	for _, t := range tiers {
		if v > t.bound {
			return t.score
		}
	}
	return floor
}

// 상한 기준 (값이 bound보다 작아야 점수 획득)
func scoreBelow(v float64, tiers []tier, floor float64) float64 {
	for _, t := range tiers {
		if v < t.bound {
			return t.score
		}
	}
	return floor
}

// Tier tables. Fixed constants; changing them changes every ranking.
var (
	debtToEquityTiers = []tier{{0.5, 1.0}, {1.0, 0.8}, {2.0, 0.6}}
	currentRatioTiers = []tier{{2.0, 1.0}, {1.5, 0.8}, {1.0, 0.6}}
	roeTiers          = []tier{{0.15, 1.0}, {0.10, 0.8}, {0.05, 0.6}}
	marketCapTiers    = []tier{{100e9, 1.0}, {10e9, 0.8}, {1e9, 0.6}}
	priceToBookTiers  = []tier{{1.0, 1.0}, {2.0, 0.8}, {5.0, 0.6}}
	revenueTiers      = []tier{{0.20, 1.0}, {0.10, 0.8}, {0.05, 0.6}}
	marginTiers       = []tier{{0.20, 1.0}, {0.10, 0.8}, {0.05, 0.6}}
)

// reputationWeights is the per-metric weight table of the reputation composite.
// A slice keeps the summation order fixed.
var reputationWeights = []struct {
	name   string
	weight float64
}{
	// ESG
	{contracts.FactorESG, 0.20},
	{contracts.MetricEnvironmental, 0.05},
	{contracts.MetricSocial, 0.05},
	{contracts.MetricGovernance, 0.05},

	// financial health 25%
	{contracts.MetricDebtToEquity, 0.05},
	{contracts.MetricCurrentRatio, 0.05},
	{contracts.MetricQuickRatio, 0.05},
	{contracts.MetricROE, 0.05},
	{contracts.MetricROA, 0.05},

	// market position 20%
	{contracts.MetricMarketCap, 0.10},
	{contracts.MetricRnD, 0.05},
	{contracts.MetricRevenueGrowth, 0.05},

	// stability 20%
	{contracts.MetricDividendYield, 0.05},
	{contracts.MetricBeta, 0.05},
	{contracts.MetricPriceStability, 0.05},
	{contracts.MetricProfitMargins, 0.05},

	// growth 15%
	{contracts.MetricEarningsGrowth, 0.10},
	{contracts.MetricVolumeAvg, 0.05},
}

// ReputationAggregator maps a fundamentals snapshot to 0..1 sub-scores
// and the reputation composite.
// ⭐ SSOT: 평판 팩터 계산은 여기서만
type ReputationAggregator struct {
	logger *logger.Logger
}

// NewReputationAggregator creates a new reputation aggregator
func NewReputationAggregator(log *logger.Logger) *ReputationAggregator {
	return &ReputationAggregator{logger: log}
}

// Aggregate returns the reputation columns of one ticker.
// A nil snapshot yields neutral sub-scores and NaN raw metrics; the
// history-derived liquidity and stability metrics are still filled in.
func (a *ReputationAggregator) Aggregate(ticker string, f *contracts.Fundamentals, history *contracts.PriceHistory) contracts.FactorVector {
	out := contracts.FactorVector{
		contracts.MetricVolumeAvg:      volumeAverage(history),
		contracts.MetricPriceStability: priceStability(history),
	}

	if f == nil {
		for _, name := range rawMetricNames {
			out[name] = math.NaN()
		}
		out[contracts.FactorESG] = math.NaN()
		out[contracts.FactorFinancialHealth] = NeutralSubScore
		out[contracts.FactorMarketPosition] = NeutralSubScore
		out[contracts.FactorGrowthStability] = NeutralSubScore
		out[contracts.FactorReputation] = NeutralSubScore

		a.logger.WithTicker(ticker).Debug("No fundamentals, using neutral reputation")
		return out
	}

	raw := rawMetrics(f)
	out.Merge(raw)

	out[contracts.FactorFinancialHealth] = FinancialHealth(f)
	out[contracts.FactorMarketPosition] = MarketPosition(f)
	out[contracts.FactorGrowthStability] = GrowthStability(f)
	out[contracts.FactorReputation] = ReputationComposite(f, out[contracts.MetricVolumeAvg], out[contracts.MetricPriceStability])

	a.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"present":    f.PresentCount(),
		"reputation": out[contracts.FactorReputation],
	}).Debug("Calculated reputation factors")

	return out
}

var rawMetricNames = []string{
	contracts.MetricEnvironmental, contracts.MetricSocial, contracts.MetricGovernance,
	contracts.MetricDebtToEquity, contracts.MetricCurrentRatio, contracts.MetricQuickRatio,
	contracts.MetricROE, contracts.MetricROA, contracts.MetricMarketCap,
	contracts.MetricEnterpriseValue, contracts.MetricRnD, contracts.MetricDividendYield,
	contracts.MetricPayoutRatio, contracts.MetricBeta, contracts.MetricRevenueGrowth,
	contracts.MetricEarningsGrowth, contracts.MetricProfitMargins,
}

// rawMetrics exposes the snapshot as columns; absent metrics stay NaN
// so the normalizer excludes them instead of scoring a fabricated zero.
func rawMetrics(f *contracts.Fundamentals) contracts.FactorVector {
	return contracts.FactorVector{
		contracts.FactorESG:             f.ESGTotal.Float(),
		contracts.MetricEnvironmental:   f.ESGEnvironmental.Float(),
		contracts.MetricSocial:          f.ESGSocial.Float(),
		contracts.MetricGovernance:      f.ESGGovernance.Float(),
		contracts.MetricDebtToEquity:    f.DebtToEquity.Float(),
		contracts.MetricCurrentRatio:    f.CurrentRatio.Float(),
		contracts.MetricQuickRatio:      f.QuickRatio.Float(),
		contracts.MetricROE:             f.ROE.Float(),
		contracts.MetricROA:             f.ROA.Float(),
		contracts.MetricMarketCap:       f.MarketCap.Float(),
		contracts.MetricEnterpriseValue: f.EnterpriseValue.Float(),
		contracts.MetricRnD:             f.ResearchAndDevelopment.Float(),
		contracts.MetricDividendYield:   f.DividendYield.Float(),
		contracts.MetricPayoutRatio:     f.PayoutRatio.Float(),
		contracts.MetricBeta:            f.Beta.Float(),
		contracts.MetricRevenueGrowth:   f.RevenueGrowth.Float(),
		contracts.MetricEarningsGrowth:  f.EarningsGrowth.Float(),
		contracts.MetricProfitMargins:   f.ProfitMargins.Float(),
	}
}

// meanOrNeutral averages the qualifying tier scores
func meanOrNeutral(scores []float64) float64 {
	if len(scores) == 0 {
		return NeutralSubScore
	}
	return mean(scores)
}

// FinancialHealth blends debt/equity, current ratio and ROE tiers
func FinancialHealth(f *contracts.Fundamentals) float64 {
	var scores []float64
	if v, ok := f.DebtToEquity.Positive(); ok {
		scores = append(scores, scoreBelow(v, debtToEquityTiers, 0.3))
	}
	if v, ok := f.CurrentRatio.Positive(); ok {
		scores = append(scores, scoreAbove(v, currentRatioTiers, 0.3))
	}
	if v, ok := f.ROE.Positive(); ok {
		scores = append(scores, scoreAbove(v, roeTiers, 0.3))
	}
	return meanOrNeutral(scores)
}

// MarketPosition blends market cap and price/book tiers
func MarketPosition(f *contracts.Fundamentals) float64 {
	var scores []float64
	if v, ok := f.MarketCap.Positive(); ok {
		scores = append(scores, scoreAbove(v, marketCapTiers, 0.4))
	}
	if v, ok := f.PriceToBook.Positive(); ok {
		scores = append(scores, scoreBelow(v, priceToBookTiers, 0.3))
	}
	return meanOrNeutral(scores)
}

// GrowthStability blends revenue growth, profit margin and dividend yield tiers
func GrowthStability(f *contracts.Fundamentals) float64 {
	var scores []float64
	if v, ok := f.RevenueGrowth.Positive(); ok {
		scores = append(scores, scoreAbove(v, revenueTiers, 0.4))
	}
	if v, ok := f.ProfitMargins.Positive(); ok {
		scores = append(scores, scoreAbove(v, marginTiers, 0.3))
	}
	if v, ok := f.DividendYield.Positive(); ok {
		scores = append(scores, dividendSweetSpot(v))
	}
	return meanOrNeutral(scores)
}

// dividendSweetSpot favors moderate yields over none or unsustainably high ones
func dividendSweetSpot(v float64) float64 {
	switch {
	case v >= 0.02 && v <= 0.06:
		return 1.0
	case v >= 0.01 && v <= 0.08:
		return 0.8
	default:
		return 0.5
	}
}

// ReputationComposite is the weighted per-metric blend clipped to [0,1].
// Absent metrics use the field default: 0, except beta which defaults to 1.
func ReputationComposite(f *contracts.Fundamentals, volumeAvg, stability float64) float64 {
	values := map[string]float64{
		contracts.FactorESG:            f.ESGTotal.Or(0),
		contracts.MetricEnvironmental:  f.ESGEnvironmental.Or(0),
		contracts.MetricSocial:         f.ESGSocial.Or(0),
		contracts.MetricGovernance:     f.ESGGovernance.Or(0),
		contracts.MetricDebtToEquity:   f.DebtToEquity.Or(0),
		contracts.MetricCurrentRatio:   f.CurrentRatio.Or(0),
		contracts.MetricQuickRatio:     f.QuickRatio.Or(0),
		contracts.MetricROE:            f.ROE.Or(0),
		contracts.MetricROA:            f.ROA.Or(0),
		contracts.MetricMarketCap:      f.MarketCap.Or(0),
		contracts.MetricRnD:            f.ResearchAndDevelopment.Or(0),
		contracts.MetricRevenueGrowth:  f.RevenueGrowth.Or(0),
		contracts.MetricDividendYield:  f.DividendYield.Or(0),
		contracts.MetricBeta:           f.Beta.Or(1),
		contracts.MetricPriceStability: orZero(stability),
		contracts.MetricProfitMargins:  f.ProfitMargins.Or(0),
		contracts.MetricEarningsGrowth: f.EarningsGrowth.Or(0),
		contracts.MetricVolumeAvg:      orZero(volumeAvg),
	}

	score := 0.0
	for _, w := range reputationWeights {
		score += normalizeMetric(w.name, values[w.name]) * w.weight
	}
	return clamp(score, 0, 1)
}

// normalizeMetric maps a raw metric onto a roughly 0..1 scale
func normalizeMetric(name string, v float64) float64 {
	switch name {
	case contracts.MetricDebtToEquity:
		// 200% 이상은 0점
		return math.Max(0, 1-math.Min(v/2, 1))
	case contracts.MetricBeta:
		// 1 = 시장 평균
		return math.Max(0, 1-math.Min(v-1, 1))
	case contracts.MetricMarketCap, contracts.MetricVolumeAvg, contracts.MetricRnD:
		return math.Min(1, math.Log10(math.Max(v, 1))/10)
	case contracts.FactorESG, contracts.MetricEnvironmental, contracts.MetricSocial, contracts.MetricGovernance:
		return v
	case contracts.MetricCurrentRatio, contracts.MetricQuickRatio:
		return math.Min(1, v/3)
	case contracts.MetricDividendYield:
		return math.Min(1, v/0.10)
	case contracts.MetricPriceStability:
		return math.Min(1, v)
	default:
		return clamp(v, 0, 1)
	}
}

// volumeAverage is the mean daily volume of the history
func volumeAverage(h *contracts.PriceHistory) float64 {
	if h.Len() == 0 {
		return math.NaN()
	}
	return mean(h.Volumes())
}

// priceStability is 1/(std(returns)+0.001)
func priceStability(h *contracts.PriceHistory) float64 {
	if h.Len() == 0 {
		return math.NaN()
	}
	std := sampleStd(h.Returns())
	if math.IsNaN(std) {
		return math.NaN()
	}
	return 1 / (std + priceStabilityEpsilon)
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
