package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantsnap/internal/brain"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/s0_data/collector"
	"github.com/wonny/quantsnap/pkg/logger"
)

type stubRunner struct {
	got brain.RunConfig
	err error
}

func (r *stubRunner) Run(_ context.Context, cfg brain.RunConfig) (*brain.RunResult, error) {
	r.got = cfg
	if r.err != nil {
		return nil, r.err
	}
	return &brain.RunResult{Ranking: &contracts.Ranking{
		RunID:  "r1",
		Scores: []contracts.CompositeScore{{Ticker: "AAPL", Rank: 1}},
	}}, nil
}

type stubLoader struct {
	members []contracts.UniverseMember
	err     error
}

func (l *stubLoader) GetUniverse(context.Context, string) ([]contracts.UniverseMember, error) {
	return l.members, l.err
}

func (l *stubLoader) ListUniverses() []string { return nil }

type stubPrices struct {
	err error
}

func (p *stubPrices) GetPriceHistory(_ context.Context, ticker, _ string) (*contracts.PriceHistory, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &contracts.PriceHistory{Ticker: ticker, Bars: []contracts.PriceBar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 10, Volume: 1},
	}}, nil
}

func TestRankingJob(t *testing.T) {
	runner := &stubRunner{}
	job := NewRankingJob(runner, "sp500", "0 30 21 * * 1-5", logger.Nop())

	assert.Equal(t, "ranking_sp500", job.Name())
	assert.Equal(t, "0 30 21 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "sp500", runner.got.Universe)

	runner.err = contracts.ErrEmptyUniverse
	assert.ErrorIs(t, job.Run(context.Background()), contracts.ErrEmptyUniverse)
}

func TestUniverseRefreshJob(t *testing.T) {
	loader := &stubLoader{members: []contracts.UniverseMember{{Ticker: "AAPL"}}}
	job := NewUniverseRefreshJob(loader, "sp500_live", "@daily", logger.Nop())

	assert.Equal(t, "universe_sp500_live", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	loader.err = contracts.ErrUnknownUniverse
	assert.ErrorIs(t, job.Run(context.Background()), contracts.ErrUnknownUniverse)
}

func TestDataCollectionJob(t *testing.T) {
	loader := &stubLoader{members: []contracts.UniverseMember{{Ticker: "AAPL"}, {Ticker: "MSFT"}}}
	prices := &stubPrices{}
	col := collector.NewCollector(prices, nil, logger.Nop())
	job := NewDataCollectionJob(loader, col, collector.Config{Workers: 2}, "popular_stocks", "@daily", logger.Nop())

	assert.Equal(t, "collect_popular_stocks", job.Name())
	assert.NoError(t, job.Run(context.Background()))

	prices.err = errors.New("upstream down")
	assert.Error(t, job.Run(context.Background()), "nothing priced is a failure")
}
