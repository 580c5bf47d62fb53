package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DefaultWorkers bounds concurrent provider calls
const DefaultWorkers = 8

// Collector fetches price history and fundamentals for a universe
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	prices       contracts.PriceProvider
	fundamentals contracts.FundamentalsProvider
	logger       *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int    // Number of concurrent workers
	Period  string // lookback, e.g. "1y"

	// SkipFundamentals collects prices only
	SkipFundamentals bool
}

// NewCollector creates a new Collector instance. fundamentals may be nil.
func NewCollector(prices contracts.PriceProvider, fundamentals contracts.FundamentalsProvider, log *logger.Logger) *Collector {
	return &Collector{
		prices:       prices,
		fundamentals: fundamentals,
		logger:       log.WithModule("collector"),
	}
}

// FetchResult is the collected data of one ticker. A nil History means the
// ticker could not be priced; Fundamentals may be nil independently.
type FetchResult struct {
	Member       contracts.UniverseMember
	History      *contracts.PriceHistory
	Fundamentals *contracts.Fundamentals
	PriceErr     error
	FundErr      error
}

// Priced reports whether price history was retrieved
func (r FetchResult) Priced() bool {
	return r.PriceErr == nil && r.History.Len() > 0
}

// Collect fetches every member concurrently. Per-ticker failures are recorded
// in the result, never returned; only context cancellation aborts the run.
// Results keep the member order.
func (c *Collector) Collect(ctx context.Context, members []contracts.UniverseMember, cfg Config) ([]FetchResult, error) {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Period == "" {
		cfg.Period = "1y"
	}

	log := c.logger.Ctx(ctx)
	log.WithFields(map[string]interface{}{
		"tickers": len(members),
		"period":  cfg.Period,
		"workers": cfg.Workers,
	}).Info("Starting collection")

	started := time.Now()
	results := make([]FetchResult, len(members))

	var quotaSpent atomic.Bool
	var quotaOnce sync.Once

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, member := range members {
		i, member := i, member
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := FetchResult{Member: member}

			res.History, res.PriceErr = c.prices.GetPriceHistory(gctx, member.Ticker, cfg.Period)
			if res.PriceErr != nil {
				log.WithError(res.PriceErr).WithTicker(member.Ticker).Warn("Failed to fetch prices")
			}

			if c.fundamentals != nil && !cfg.SkipFundamentals && !quotaSpent.Load() {
				res.Fundamentals, res.FundErr = c.fundamentals.GetFundamentals(gctx, member.Ticker)
				switch {
				case errors.Is(res.FundErr, contracts.ErrQuotaExhausted):
					quotaSpent.Store(true)
					quotaOnce.Do(func() {
						log.WithTicker(member.Ticker).Warn("Fundamentals quota exhausted, continuing with prices only")
					})
				case errors.Is(res.FundErr, contracts.ErrNotFound):
					// 재무 데이터 없음: 중립 점수로 처리
				case res.FundErr != nil:
					log.WithError(res.FundErr).WithTicker(member.Ticker).Warn("Failed to fetch fundamentals")
				}
			}

			if res.Fundamentals != nil && res.Member.Name == "" {
				res.Member.Name = res.Fundamentals.Name
			}

			results[i] = res
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	priced, withFundamentals := 0, 0
	for _, r := range results {
		if r.Priced() {
			priced++
		}
		if r.Fundamentals != nil {
			withFundamentals++
		}
	}

	log.WithFields(map[string]interface{}{
		"total":        len(results),
		"priced":       priced,
		"fundamentals": withFundamentals,
		"duration":     time.Since(started).String(),
	}).Info("Collection completed")

	return results, nil
}
