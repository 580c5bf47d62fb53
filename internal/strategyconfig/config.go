package strategyconfig

import (
	"github.com/wonny/quantsnap/internal/s0_data/quality"
	"github.com/wonny/quantsnap/internal/s1_universe"
	"github.com/wonny/quantsnap/internal/s2_signals"
	"github.com/wonny/quantsnap/internal/selection"
)

// Config는 랭킹 전략의 전체 설정
type Config struct {
	Meta          Meta                    `yaml:"meta" json:"meta"`
	Universe      s1_universe.Config      `yaml:"universe" json:"universe"`
	Quality       quality.Config          `yaml:"quality" json:"quality"`
	Factors       s2_signals.FactorParams `yaml:"factors" json:"factors"`
	Normalization Normalization           `yaml:"normalization" json:"normalization"`
	Ranking       Ranking                 `yaml:"ranking" json:"ranking"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
}

// Normalization S3: 횡단면 정규화
type Normalization struct {
	ZScoreClip float64 `yaml:"zscore_clip" json:"zscore_clip"`
}

// Ranking S4: 가중치와 출력 크기
type Ranking struct {
	// Weights maps factor column to weight. Keys are sorted when hashed.
	Weights map[string]float64 `yaml:"weights" json:"weights"`

	// Renormalize rescales Weights to sum to 1 instead of rejecting them
	Renormalize bool `yaml:"renormalize" json:"renormalize"`

	TopN int `yaml:"top_n" json:"top_n"` // 0 = 전체
}

// Default returns the built-in strategy used when no file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "default",
			Version:    "1",
		},
		Quality:       quality.DefaultConfig(),
		Factors:       s2_signals.DefaultFactorParams(),
		Normalization: Normalization{ZScoreClip: selection.DefaultClip},
		Ranking: Ranking{
			Weights: selection.DefaultWeights(),
		},
	}
}
