package s2_signals

import (
	"context"
	"math"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// TradingDaysPerYear annualizes daily statistics
const TradingDaysPerYear = 252

// FactorParams holds the lookback windows of the price factors
type FactorParams struct {
	ShortMomentum   int     `json:"short_momentum" yaml:"short_momentum"`
	LongMomentum    int     `json:"long_momentum" yaml:"long_momentum"`
	SlopeWindow     int     `json:"slope_window" yaml:"slope_window"`
	VolWindow       int     `json:"vol_window" yaml:"vol_window"`
	SharpeWindow    int     `json:"sharpe_window" yaml:"sharpe_window"`
	RiskFreeRate    float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	DollarVolWindow int     `json:"dollar_vol_window" yaml:"dollar_vol_window"`
	MinBars         int     `json:"min_bars" yaml:"min_bars"`
}

// DefaultFactorParams returns the canonical windows (21/63/50/30/63/20, rf 2%)
func DefaultFactorParams() FactorParams {
	return FactorParams{
		ShortMomentum:   21,
		LongMomentum:    63,
		SlopeWindow:     50,
		VolWindow:       30,
		SharpeWindow:    63,
		RiskFreeRate:    0.02,
		DollarVolWindow: 20,
		MinBars:         contracts.MinHistoryBars,
	}
}

// FactorCalculator derives price factors from a price/volume history.
// No I/O: everything it needs arrives as arguments.
// ⭐ SSOT: 가격 팩터 계산은 여기서만
type FactorCalculator struct {
	params FactorParams
	logger *logger.Logger
}

// NewFactorCalculator creates a new factor calculator
func NewFactorCalculator(params FactorParams, log *logger.Logger) *FactorCalculator {
	return &FactorCalculator{
		params: params,
		logger: log,
	}
}

// Params returns the calculator's windows
func (c *FactorCalculator) Params() FactorParams {
	return c.params
}

// Calculate computes the price factors of one ticker.
// Histories shorter than MinBars return *contracts.InsufficientDataError.
func (c *FactorCalculator) Calculate(ctx context.Context, ticker string, history *contracts.PriceHistory) (contracts.FactorVector, error) {
	if history.Len() < c.params.MinBars {
		return nil, &contracts.InsufficientDataError{
			Ticker:   ticker,
			Bars:     history.Len(),
			Required: c.params.MinBars,
		}
	}

	factors := c.compute(history)

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"mom_1m": factors[contracts.FactorMomentum1M],
		"mom_3m": factors[contracts.FactorMomentum3M],
		"slope":  factors[contracts.FactorSlope50D],
		"vol":    factors[contracts.FactorVolatility30],
		"sharpe": factors[contracts.FactorSharpe3M],
		"dollar": factors[contracts.FactorDollarVol20D],
	}).Debug("Calculated price factors")

	return factors, nil
}

// ComputeFactors is the non-failing form of Calculate: short histories
// yield a vector whose price factors are all NaN.
func (c *FactorCalculator) ComputeFactors(ticker string, history *contracts.PriceHistory) contracts.FactorVector {
	factors, err := c.Calculate(context.Background(), ticker, history)
	if err != nil {
		return undefinedPriceFactors()
	}
	return factors
}

func (c *FactorCalculator) compute(history *contracts.PriceHistory) contracts.FactorVector {
	closes := history.Closes()
	volumes := history.Volumes()
	returns := history.Returns()
	p := c.params

	return contracts.FactorVector{
		contracts.FactorMomentum1M:   Momentum(closes, p.ShortMomentum),
		contracts.FactorMomentum3M:   Momentum(closes, p.LongMomentum),
		contracts.FactorSlope50D:     TrendSlope(closes, p.SlopeWindow),
		contracts.FactorVolatility30: Volatility(returns, p.VolWindow),
		contracts.FactorSharpe3M:     Sharpe(returns, p.SharpeWindow, p.RiskFreeRate),
		contracts.FactorDollarVol20D: DollarVolume(closes, volumes, p.DollarVolWindow),
	}
}

func undefinedPriceFactors() contracts.FactorVector {
	out := make(contracts.FactorVector, len(contracts.PriceFactors))
	for _, name := range contracts.PriceFactors {
		out[name] = math.NaN()
	}
	return out
}

// Momentum is close[-1]/close[-1-n] - 1; NaN when len < n+1 or the past close is 0
func Momentum(closes []float64, n int) float64 {
	if n < 1 || len(closes) < n+1 {
		return math.NaN()
	}
	current := closes[len(closes)-1]
	past := closes[len(closes)-1-n]
	if past == 0 {
		return math.NaN()
	}
	return current/past - 1
}

// TrendSlope is the OLS slope of ln(close) over the trailing window.
// NaN when len < window or any close in the window is not positive.
func TrendSlope(closes []float64, window int) float64 {
	if window < 2 || len(closes) < window {
		return math.NaN()
	}
	recent := tail(closes, window)
	logs := make([]float64, len(recent))
	for i, c := range recent {
		if c <= 0 {
			return math.NaN()
		}
		logs[i] = math.Log(c)
	}
	return olsSlope(logs)
}

// Volatility is the sample std of the trailing window returns, using all
// available returns when fewer exist. One return gives 0, none gives NaN.
func Volatility(returns []float64, window int) float64 {
	switch len(returns) {
	case 0:
		return math.NaN()
	case 1:
		return 0
	}
	return sampleStd(tail(returns, window))
}

// Sharpe is (mean*252 - rf) / (std*sqrt(252)) over the trailing window.
// NaN when fewer than window returns exist or std is 0.
func Sharpe(returns []float64, window int, riskFreeRate float64) float64 {
	if window < 2 || len(returns) < window {
		return math.NaN()
	}
	recent := tail(returns, window)
	std := sampleStd(recent) * math.Sqrt(TradingDaysPerYear)
	if std == 0 || math.IsNaN(std) {
		return math.NaN()
	}
	return (mean(recent)*TradingDaysPerYear - riskFreeRate) / std
}

// DollarVolume is mean(close*volume) over the trailing window, or all available bars
func DollarVolume(closes, volumes []float64, window int) float64 {
	n := len(closes)
	if len(volumes) < n {
		n = len(volumes)
	}
	if n == 0 {
		return math.NaN()
	}
	closes = closes[len(closes)-n:]
	volumes = volumes[len(volumes)-n:]

	dv := make([]float64, n)
	for i := range dv {
		dv[i] = closes[i] * volumes[i]
	}
	return mean(tail(dv, window))
}
