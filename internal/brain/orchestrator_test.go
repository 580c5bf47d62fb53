package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/s0_data/collector"
	"github.com/wonny/quantsnap/internal/s0_data/quality"
	"github.com/wonny/quantsnap/internal/strategyconfig"
	"github.com/wonny/quantsnap/pkg/logger"
)

type fakeUniverses struct {
	members map[string][]contracts.UniverseMember
}

func (f *fakeUniverses) GetUniverse(_ context.Context, name string) ([]contracts.UniverseMember, error) {
	m, ok := f.members[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, contracts.ErrUnknownUniverse)
	}
	return m, nil
}

func (f *fakeUniverses) ListUniverses() []string {
	return []string{"test"}
}

// fakePrices returns a linear history whose growth depends on the ticker
type fakePrices struct {
	growth map[string]float64
	bars   int
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakePrices) GetPriceHistory(_ context.Context, ticker, _ string) (*contracts.PriceHistory, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	g, ok := f.growth[ticker]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ticker, contracts.ErrNotFound)
	}
	h := &contracts.PriceHistory{Ticker: ticker}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < f.bars; i++ {
		c := 100 * (1 + g*float64(i)/float64(f.bars))
		// 약간의 잡음으로 변동성 0 방지
		if i%2 == 1 {
			c *= 1.001
		}
		h.Bars = append(h.Bars, contracts.PriceBar{
			Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000,
		})
	}
	return h, nil
}

type memRankingStore struct {
	mu    sync.Mutex
	saved []*contracts.Ranking
	err   error
}

func (m *memRankingStore) SaveRanking(_ context.Context, r *contracts.Ranking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *memRankingStore) LatestRanking(_ context.Context, universe string) (*contracts.Ranking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Universe == universe {
			return m.saved[i], nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (m *memRankingStore) TickerHistory(_ context.Context, ticker, universe string, limit int) ([]contracts.TickerRankPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []contracts.TickerRankPoint
	for i := len(m.saved) - 1; i >= 0; i-- {
		r := m.saved[i]
		if s, ok := r.Find(ticker); ok && (universe == "" || r.Universe == universe) {
			out = append(out, contracts.TickerRankPoint{RunID: r.RunID, Universe: r.Universe, Rank: s.Rank})
		}
	}
	return out, nil
}

type memSnapshots struct {
	saved []*quality.Snapshot
}

func (m *memSnapshots) SaveSnapshot(_ context.Context, s *quality.Snapshot) error {
	m.saved = append(m.saved, s)
	return nil
}

func newTestOrchestrator(t *testing.T, strategy *strategyconfig.Config) (*Orchestrator, *fakePrices) {
	t.Helper()

	universes := &fakeUniverses{members: map[string][]contracts.UniverseMember{
		"test": {
			{Ticker: "FAST", Name: "Fast Co"},
			{Ticker: "SLOW", Name: "Slow Co"},
			{Ticker: "FLAT", Name: "Flat Co"},
			{Ticker: "GONE", Name: "Delisted"},
		},
	}}
	prices := &fakePrices{
		growth: map[string]float64{"FAST": 0.5, "SLOW": 0.1, "FLAT": 0},
		bars:   80,
	}
	log := logger.Nop()

	o, err := NewOrchestrator(universes, collector.NewCollector(prices, nil, log), strategy,
		collector.Config{Workers: 2, Period: "1y"}, log)
	require.NoError(t, err)

	fixed := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	o.WithClock(func() time.Time { return fixed })
	return o, prices
}

func TestOrchestrator_Run(t *testing.T) {
	o, prices := newTestOrchestrator(t, nil)
	store := &memRankingStore{}
	snapshots := &memSnapshots{}
	o.WithStore(store).WithSnapshotStore(snapshots)

	res, err := o.Run(context.Background(), RunConfig{Universe: "test", TopN: 2})
	require.NoError(t, err)

	r := res.Ranking
	assert.Equal(t, "test", r.Universe)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, o.StrategyHash(), r.StrategyHash)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), r.AsOf)

	require.Equal(t, 3, r.Len())
	assert.Equal(t, "FAST", r.Scores[0].Ticker)
	assert.Equal(t, "Fast Co", r.Scores[0].Name)
	assert.Equal(t, "FLAT", r.Scores[2].Ticker)

	assert.Len(t, res.Top, 2)
	assert.Contains(t, res.Dropped, "GONE")

	require.Len(t, snapshots.saved, 1)
	assert.Equal(t, 4, snapshots.saved[0].TotalTickers)
	assert.Equal(t, 3, snapshots.saved[0].ValidTickers)

	require.Len(t, store.saved, 1)
	assert.LessOrEqual(t, prices.peak.Load(), int32(2))

	latest, err := o.LatestRanking(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, r.RunID, latest.RunID)

	history, err := o.TickerHistory(context.Background(), "FAST", "test", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Rank)
}

func TestOrchestrator_Errors(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.Run(context.Background(), RunConfig{Universe: "missing"})
	assert.ErrorIs(t, err, contracts.ErrUnknownUniverse)

	_, err = o.LatestRanking(context.Background(), "test")
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Run(ctx, RunConfig{Universe: "test"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrchestrator_InvalidStrategy(t *testing.T) {
	bad := strategyconfig.Default()
	bad.Ranking.Weights = map[string]float64{contracts.FactorMomentum1M: 0.3}

	_, err := NewOrchestrator(&fakeUniverses{}, nil, bad, collector.Config{}, logger.Nop())
	require.Error(t, err)
	var ve strategyconfig.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestOrchestrator_StoreFailureKeepsResult(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	o.WithStore(&memRankingStore{err: errors.New("db down")})

	res, err := o.Run(context.Background(), RunConfig{Universe: "test"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Ranking.Len())
}

func TestOrchestrator_InMemoryHistory(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	_, err := o.Run(context.Background(), RunConfig{Universe: "test"})
	require.NoError(t, err)

	latest, err := o.LatestRanking(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Len())

	points, err := o.TickerHistory(context.Background(), "SLOW", "", 0)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2, points[0].Rank)
	assert.Equal(t, 3, points[0].UniverseSize)
}

func TestOrchestrator_SerializesRunsPerUniverse(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.Run(context.Background(), RunConfig{Universe: "test"})
			if assert.NoError(t, err) {
				ids[i] = res.Ranking.RunID
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 4, "every run gets its own id")
}
