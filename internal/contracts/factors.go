package contracts

import (
	"encoding/json"
	"math"
	"sort"
)

// Factor column names.
// ⭐ SSOT: 저장/API에서 쓰는 컬럼명은 여기서만 정의
const (
	FactorMomentum1M   = "MOM_1M"
	FactorMomentum3M   = "MOM_3M"
	FactorSlope50D     = "Slope_50d"
	FactorVolatility30 = "Vol_30d"
	FactorSharpe3M     = "Sharpe_3M"
	FactorDollarVol20D = "DollarVol_20d"

	FactorReputation      = "Reputation_Score"
	FactorESG             = "ESG_Score"
	FactorFinancialHealth = "Financial_Health"
	FactorMarketPosition  = "Market_Position"
	FactorGrowthStability = "Growth_Stability"

	// raw reputation metrics
	MetricEnvironmental   = "Environmental_Score"
	MetricSocial          = "Social_Score"
	MetricGovernance      = "Governance_Score"
	MetricDebtToEquity    = "Debt_to_Equity"
	MetricCurrentRatio    = "Current_Ratio"
	MetricQuickRatio      = "Quick_Ratio"
	MetricROE             = "ROE"
	MetricROA             = "ROA"
	MetricMarketCap       = "Market_Cap"
	MetricEnterpriseValue = "Enterprise_Value"
	MetricRnD             = "RnD_Spending"
	MetricDividendYield   = "Dividend_Yield"
	MetricPayoutRatio     = "Payout_Ratio"
	MetricBeta            = "Beta"
	MetricRevenueGrowth   = "Revenue_Growth"
	MetricEarningsGrowth  = "Earnings_Growth"
	MetricProfitMargins   = "Profit_Margins"
	MetricVolumeAvg       = "Volume_Avg"
	MetricPriceStability  = "Price_Stability"
)

// PriceFactors lists the price-derived factor columns
var PriceFactors = []string{
	FactorMomentum1M,
	FactorMomentum3M,
	FactorSlope50D,
	FactorVolatility30,
	FactorSharpe3M,
	FactorDollarVol20D,
}

// ReputationFactors lists the fundamentals-derived scores in [0, 1]
var ReputationFactors = []string{
	FactorReputation,
	FactorESG,
	FactorFinancialHealth,
	FactorMarketPosition,
	FactorGrowthStability,
}

// RawMetrics lists the raw reputation inputs carried next to the scores
var RawMetrics = []string{
	MetricEnvironmental, MetricSocial, MetricGovernance,
	MetricDebtToEquity, MetricCurrentRatio, MetricQuickRatio, MetricROE, MetricROA,
	MetricMarketCap, MetricEnterpriseValue, MetricRnD,
	MetricDividendYield, MetricPayoutRatio, MetricBeta,
	MetricRevenueGrowth, MetricEarningsGrowth, MetricProfitMargins,
	MetricVolumeAvg, MetricPriceStability,
}

var knownColumns = func() map[string]bool {
	out := make(map[string]bool)
	for _, list := range [][]string{PriceFactors, ReputationFactors, RawMetrics} {
		for _, name := range list {
			out[name] = true
		}
	}
	return out
}()

// IsKnownColumn reports whether a factor table can contain the column
func IsKnownColumn(name string) bool {
	return knownColumns[name]
}

// LowerIsBetter lists columns whose sign is flipped after normalization
var LowerIsBetter = map[string]bool{
	FactorVolatility30: true,
	MetricDebtToEquity: true,
	MetricBeta:         true,
	MetricPayoutRatio:  true,
}

// FactorVector maps factor name to value. NaN means undefined.
type FactorVector map[string]float64

// Get returns the value or NaN when the column is missing
func (v FactorVector) Get(name string) float64 {
	val, ok := v[name]
	if !ok {
		return math.NaN()
	}
	return val
}

// Clone returns a copy
func (v FactorVector) Clone() FactorVector {
	out := make(FactorVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge copies other's entries into v, overwriting on conflict
func (v FactorVector) Merge(other FactorVector) {
	for k, val := range other {
		v[k] = val
	}
}

// MarshalJSON encodes NaN and ±Inf as null
func (v FactorVector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	out := make(map[string]*float64, len(v))
	for k, val := range v {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			out[k] = nil
			continue
		}
		val := val
		out[k] = &val
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null as NaN
func (v *FactorVector) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FactorVector, len(raw))
	for k, val := range raw {
		if val == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *val
	}
	*v = out
	return nil
}

// FactorTable maps ticker to its factor vector
// ⭐ SSOT: S2 → S3/S4 팩터 데이터 전달
type FactorTable map[string]FactorVector

// Tickers returns the tickers in ascending order
func (t FactorTable) Tickers() []string {
	out := make([]string, 0, len(t))
	for ticker := range t {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}

// Columns returns the sorted union of column names
func (t FactorTable) Columns() []string {
	seen := make(map[string]struct{})
	for _, vec := range t {
		for name := range vec {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Column returns the column values aligned with Tickers(); missing cells are NaN
func (t FactorTable) Column(name string) []float64 {
	tickers := t.Tickers()
	out := make([]float64, len(tickers))
	for i, ticker := range tickers {
		out[i] = t[ticker].Get(name)
	}
	return out
}
