package strategyconfig

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/wonny/quantsnap/internal/contracts"
)

var strategyIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if !strategyIDPattern.MatchString(cfg.Meta.StrategyID) {
		return ValidationError{"meta.strategy_id", "must be lowercase letters, digits, '_' or '-'"}
	}

	// === Universe ===
	if cfg.Universe.MaxSize < 0 {
		return ValidationError{"universe.max_size", "must be >= 0"}
	}

	// === Quality ===
	if err := validatePctRange(cfg.Quality.MinPriceCoverage, "quality.min_price_coverage"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.Quality.MinHistoryCoverage, "quality.min_history_coverage"); err != nil {
		return err
	}
	if err := validatePctRange(cfg.Quality.MinFundamentalsCoverage, "quality.min_fundamentals_coverage"); err != nil {
		return err
	}

	// === Factors ===
	f := cfg.Factors
	windows := []struct {
		field string
		value int
	}{
		{"factors.short_momentum", f.ShortMomentum},
		{"factors.long_momentum", f.LongMomentum},
		{"factors.slope_window", f.SlopeWindow},
		{"factors.vol_window", f.VolWindow},
		{"factors.sharpe_window", f.SharpeWindow},
		{"factors.dollar_vol_window", f.DollarVolWindow},
	}
	for _, w := range windows {
		if w.value < 2 {
			return ValidationError{w.field, "must be >= 2"}
		}
	}
	if f.ShortMomentum >= f.LongMomentum {
		return ValidationError{"factors", "short_momentum must be < long_momentum"}
	}
	if f.MinBars <= f.LongMomentum {
		return ValidationError{"factors.min_bars", fmt.Sprintf("must be > long_momentum=%d", f.LongMomentum)}
	}
	if math.IsNaN(f.RiskFreeRate) || f.RiskFreeRate < 0 || f.RiskFreeRate >= 1 {
		return ValidationError{"factors.risk_free_rate", "must be in [0, 1)"}
	}

	// === Normalization ===
	if cfg.Normalization.ZScoreClip <= 0 {
		return ValidationError{"normalization.zscore_clip", "must be > 0"}
	}

	// === Ranking ===
	if len(cfg.Ranking.Weights) == 0 {
		return ValidationError{"ranking.weights", "required"}
	}
	for _, name := range sortedNames(cfg.Ranking.Weights) {
		w := cfg.Ranking.Weights[name]
		if !contracts.IsKnownColumn(name) {
			return ValidationError{"ranking.weights." + name, "unknown factor column"}
		}
		if math.IsNaN(w) || w < 0 {
			return ValidationError{"ranking.weights." + name, "must be >= 0"}
		}
	}
	if err := cfg.Weights().Validate(); err != nil {
		return ValidationError{"ranking.weights", err.Error()}
	}
	if cfg.Ranking.TopN < 0 {
		return ValidationError{"ranking.top_n", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 원시 지표에 가중치: 단위가 제각각이라 정규화 후에도 의미가 약함
	for _, name := range sortedNames(cfg.Ranking.Weights) {
		if cfg.Ranking.Weights[name] > 0 && isRawMetric(name) {
			warnings = append(warnings, Warning{
				Code:    "RAW_METRIC_WEIGHT",
				Message: fmt.Sprintf("%s is a raw reputation input, consider its composite score", name),
			})
		}
	}

	// 최소 이력이 기본값보다 짧으면 3개월 팩터가 자주 NaN
	if cfg.Factors.MinBars < contracts.MinHistoryBars {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY",
			Message: fmt.Sprintf("factors.min_bars=%d < %d", cfg.Factors.MinBars, contracts.MinHistoryBars),
		})
	}

	if cfg.Normalization.ZScoreClip > 5 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_CLIP",
			Message: "zscore_clip > 5: outliers dominate the composite",
		})
	}

	return warnings
}

// === Helper Functions ===

func isRawMetric(name string) bool {
	for _, m := range contracts.RawMetrics {
		if m == name {
			return true
		}
	}
	return false
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
