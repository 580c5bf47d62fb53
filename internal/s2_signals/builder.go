package s2_signals

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
)

// DefaultWorkers bounds per-ticker factor computation
const DefaultWorkers = 8

// TickerData is one ticker's collected inputs. Fundamentals may be nil.
type TickerData struct {
	Ticker       string
	Name         string
	History      *contracts.PriceHistory
	Fundamentals *contracts.Fundamentals
}

// BuildResult is the factor table of a run plus the tickers left out of it
type BuildResult struct {
	Table   contracts.FactorTable
	Dropped map[string]string // ticker -> reason
}

// Builder fans per-ticker factor computation out to a worker pool and
// joins the results into one FactorTable.
// ⭐ SSOT: 팩터 테이블 생성 오케스트레이션은 여기서만
type Builder struct {
	factors    *FactorCalculator
	reputation *ReputationAggregator
	workers    int
	logger     *logger.Logger
}

// NewBuilder creates a new factor table builder
func NewBuilder(factors *FactorCalculator, reputation *ReputationAggregator, workers int, log *logger.Logger) *Builder {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Builder{
		factors:    factors,
		reputation: reputation,
		workers:    workers,
		logger:     log,
	}
}

type buildOutcome struct {
	ticker  string
	factors contracts.FactorVector
	err     error
}

// Build computes the factor vector of every ticker. Tickers with too little
// history are dropped and reported, never fatal. Build returns only after
// every worker has finished.
func (b *Builder) Build(ctx context.Context, inputs []TickerData) (*BuildResult, error) {
	log := b.logger.Ctx(ctx)
	log.WithFields(map[string]interface{}{
		"tickers": len(inputs),
		"workers": b.workers,
	}).Info("Starting factor computation")

	jobs := make(chan TickerData)
	results := make(chan buildOutcome, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				vec, err := b.computeTicker(ctx, in)
				results <- buildOutcome{ticker: in.Ticker, factors: vec, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, in := range inputs {
			select {
			case jobs <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	// barrier: normalization needs the whole table
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BuildResult{
		Table:   make(contracts.FactorTable, len(inputs)),
		Dropped: make(map[string]string),
	}
	for out := range results {
		if out.err != nil {
			res.Dropped[out.ticker] = out.err.Error()
			entry := log.WithTicker(out.ticker).WithError(out.err)
			switch {
			case errors.Is(out.err, contracts.ErrInsufficientData):
				entry.Warn("Dropping ticker: insufficient history")
			case errors.Is(out.err, contracts.ErrInvalidHistory):
				entry.Warn("Dropping ticker: malformed history")
			default:
				entry.Warn("Dropping ticker: factor computation failed")
			}
			continue
		}
		res.Table[out.ticker] = out.factors
	}

	log.WithFields(map[string]interface{}{
		"total":   len(inputs),
		"success": len(res.Table),
		"dropped": len(res.Dropped),
	}).Info("Factor computation completed")

	return res, nil
}

func (b *Builder) computeTicker(ctx context.Context, in TickerData) (contracts.FactorVector, error) {
	if in.History == nil {
		return nil, &contracts.InsufficientDataError{Ticker: in.Ticker, Required: b.factors.Params().MinBars}
	}
	if err := in.History.Validate(); err != nil {
		return nil, err
	}

	vec, err := b.factors.Calculate(ctx, in.Ticker, in.History)
	if err != nil {
		return nil, err
	}
	vec.Merge(b.reputation.Aggregate(in.Ticker, in.Fundamentals, in.History))
	return vec, nil
}

// DroppedTickers returns the dropped tickers in ascending order
func (r *BuildResult) DroppedTickers() []string {
	out := make([]string, 0, len(r.Dropped))
	for t := range r.Dropped {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
