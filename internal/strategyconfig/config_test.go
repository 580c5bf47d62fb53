package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/selection"
)

const sampleYAML = `
meta:
  strategy_id: momentum_tilt
  version: "2"
universe:
  exclude_tickers: [GME]
  max_size: 300
factors:
  short_momentum: 21
  long_momentum: 63
  slope_window: 50
  vol_window: 30
  sharpe_window: 63
  risk_free_rate: 0.04
  dollar_vol_window: 20
  min_bars: 65
normalization:
  zscore_clip: 2.5
ranking:
  weights:
    MOM_1M: 0.4
    MOM_3M: 0.4
    Reputation_Score: 0.2
  top_n: 25
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "momentum_tilt", cfg.Meta.StrategyID)
	assert.Equal(t, []string{"GME"}, cfg.Universe.ExcludeTickers)
	assert.Equal(t, 0.04, cfg.Factors.RiskFreeRate)
	assert.Equal(t, 2.5, cfg.Normalization.ZScoreClip)
	assert.Equal(t, 25, cfg.Ranking.TopN)

	// file weights replace the defaults instead of merging
	assert.Len(t, cfg.Ranking.Weights, 3)
	assert.NotContains(t, cfg.Ranking.Weights, contracts.FactorSharpe3M)

	// unspecified sections keep defaults
	assert.Equal(t, 0.90, cfg.Quality.MinPriceCoverage)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Ranking.Weights, cfg.Ranking.Weights)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("meta:\n  strategy_id: x\n  strategy_idd: y\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"default ok", func(c *Config) {}, ""},
		{"missing id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad id", func(c *Config) { c.Meta.StrategyID = "Has Space" }, "meta.strategy_id"},
		{"weights sum", func(c *Config) { c.Ranking.Weights = map[string]float64{"MOM_1M": 0.5} }, "ranking.weights"},
		{"renormalized weights", func(c *Config) {
			c.Ranking.Weights = map[string]float64{"MOM_1M": 2, "MOM_3M": 2}
			c.Ranking.Renormalize = true
		}, ""},
		{"unknown column", func(c *Config) { c.Ranking.Weights = map[string]float64{"PE_Ratio": 1} }, "ranking.weights.PE_Ratio"},
		{"negative weight", func(c *Config) { c.Ranking.Weights = map[string]float64{"MOM_1M": 1.5, "MOM_3M": -0.5} }, "ranking.weights.MOM_3M"},
		{"windows order", func(c *Config) { c.Factors.ShortMomentum = 63 }, "factors"},
		{"min bars", func(c *Config) { c.Factors.MinBars = 60 }, "factors.min_bars"},
		{"clip", func(c *Config) { c.Normalization.ZScoreClip = 0 }, "normalization.zscore_clip"},
		{"quality range", func(c *Config) { c.Quality.MinPriceCoverage = 1.5 }, "quality.min_price_coverage"},
		{"top n", func(c *Config) { c.Ranking.TopN = -1 }, "ranking.top_n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestWeights_Renormalize(t *testing.T) {
	cfg := Default()
	cfg.Ranking.Weights = map[string]float64{"MOM_1M": 3, "MOM_3M": 1}
	cfg.Ranking.Renormalize = true

	w := cfg.Weights()
	assert.InDelta(t, 0.75, w["MOM_1M"], 1e-12)
	assert.Equal(t, 3.0, cfg.Ranking.Weights["MOM_1M"], "config untouched")
}

func TestHash(t *testing.T) {
	a := Default()
	b := Default()

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb, "deterministic")

	b.Ranking.TopN = 10
	hb, err = Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestHash_StableAcrossCalls(t *testing.T) {
	want, err := Hash(Default())
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		got, err := Hash(Default())
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	assert.Empty(t, Warn(cfg))

	cfg.Ranking.Weights = map[string]float64{contracts.MetricBeta: 0.5, contracts.FactorMomentum1M: 0.5}
	cfg.Normalization.ZScoreClip = 6

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{"RAW_METRIC_WEIGHT", "WIDE_CLIP"}, codes)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleYAML, string(raw))
	assert.Equal(t, "momentum_tilt", cfg.Meta.StrategyID)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault_MatchesRankingDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, selection.DefaultWeights(), cfg.Weights())
	assert.NoError(t, Validate(cfg))
}
