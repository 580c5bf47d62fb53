package brain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/s0_data/collector"
	"github.com/wonny/quantsnap/internal/s0_data/quality"
	"github.com/wonny/quantsnap/internal/s2_signals"
	"github.com/wonny/quantsnap/internal/selection"
	"github.com/wonny/quantsnap/internal/strategyconfig"
	"github.com/wonny/quantsnap/pkg/logger"
	"github.com/wonny/quantsnap/pkg/redis"
)

// SnapshotStore persists quality gate snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *quality.Snapshot) error
}

// Orchestrator runs one ranking pass over a universe:
// S1 universe → S0 collect + quality → S2 factors → S3/S4 rank → persist
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	universes contracts.UniverseLoader
	collector *collector.Collector
	gate      *quality.Gate
	signals   *s2_signals.Builder
	ranker    *selection.Ranker

	strategy     *strategyconfig.Config
	strategyHash string
	collect      collector.Config

	// optional persistence
	store     contracts.RankingStore
	snapshots SnapshotStore
	cache     *redis.Cache
	cacheTTL  time.Duration

	logger *logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	latest map[string]*contracts.Ranking
}

// RunConfig holds configuration for a ranking run
type RunConfig struct {
	Universe string
	AsOf     time.Time // zero = today (UTC)
	TopN     int       // 0 = strategy top_n
}

// RunResult holds the results of a complete ranking run
type RunResult struct {
	Ranking  *contracts.Ranking
	Top      []contracts.CompositeScore
	Quality  *quality.Snapshot
	Dropped  map[string]string
	Duration time.Duration
}

// NewOrchestrator wires the stage components from a validated strategy
func NewOrchestrator(
	universes contracts.UniverseLoader,
	coll *collector.Collector,
	strategy *strategyconfig.Config,
	collect collector.Config,
	log *logger.Logger,
) (*Orchestrator, error) {
	if strategy == nil {
		strategy = strategyconfig.Default()
	}
	if err := strategyconfig.Validate(strategy); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	log = log.WithModule("brain")
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &Orchestrator{
		universes: universes,
		collector: coll,
		gate:      quality.NewGate(strategy.Quality),
		signals: s2_signals.NewBuilder(
			s2_signals.NewFactorCalculator(strategy.Factors, log),
			s2_signals.NewReputationAggregator(log),
			collect.Workers,
			log,
		),
		ranker:       selection.NewRanker(selection.NewNormalizer(strategy.Normalization.ZScoreClip, log), log),
		strategy:     strategy,
		strategyHash: hash,
		collect:      collect,
		cacheTTL:     redis.TTLMedium,
		logger:       log,
		now:          time.Now,
		locks:        make(map[string]*sync.Mutex),
		latest:       make(map[string]*contracts.Ranking),
	}, nil
}

// WithStore persists every ranking and serves history from it
func (o *Orchestrator) WithStore(store contracts.RankingStore) *Orchestrator {
	o.store = store
	return o
}

// WithSnapshotStore persists quality gate snapshots
func (o *Orchestrator) WithSnapshotStore(store SnapshotStore) *Orchestrator {
	o.snapshots = store
	return o
}

// WithCache caches the latest ranking per universe
func (o *Orchestrator) WithCache(cache *redis.Cache, ttl time.Duration) *Orchestrator {
	o.cache = cache
	if ttl > 0 {
		o.cacheTTL = ttl
	}
	return o
}

// WithClock overrides time.Now (tests)
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// StrategyHash returns the hash recorded with every run
func (o *Orchestrator) StrategyHash() string {
	return o.strategyHash
}

// Universes lists the universes that can be ranked
func (o *Orchestrator) Universes() []string {
	return o.universes.ListUniverses()
}

// universeLock serializes runs on the same universe
func (o *Orchestrator) universeLock(universe string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.locks[universe]
	if !ok {
		l = &sync.Mutex{}
		o.locks[universe] = l
	}
	return l
}

// Run executes a ranking run. Runs on the same universe never interleave.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	lock := o.universeLock(config.Universe)
	lock.Lock()
	defer lock.Unlock()

	started := o.now()
	asOf := config.AsOf
	if asOf.IsZero() {
		asOf = started.UTC()
	}
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	runID := uuid.NewString()
	ctx = logger.ContextWithRun(ctx, runID, config.Universe)
	log := o.logger.Ctx(ctx)
	log.WithFields(map[string]interface{}{
		"as_of":    asOf.Format("2006-01-02"),
		"strategy": o.strategy.Meta.StrategyID,
		"hash":     o.strategyHash[:12],
	}).Info("Starting ranking run")

	// S1: Universe
	members, err := o.universes.GetUniverse(ctx, config.Universe)
	if err != nil {
		return nil, fmt.Errorf("S1 universe: %w", err)
	}

	// S0: Collect + quality gate
	results, err := o.collector.Collect(ctx, members, o.collect)
	if err != nil {
		return nil, fmt.Errorf("S0 collect: %w", err)
	}

	snapshot := o.gate.Check(config.Universe, asOf, results)
	entry := log.WithFields(map[string]interface{}{
		"quality_score": snapshot.QualityScore,
		"valid":         snapshot.ValidTickers,
		"total":         snapshot.TotalTickers,
	})
	if snapshot.Passed {
		entry.Info("Quality gate passed")
	} else {
		entry.Warn("Quality gate failed, ranking with collected data")
	}
	if o.snapshots != nil {
		if err := o.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			log.WithError(err).Warn("Failed to save quality snapshot")
		}
	}

	// S2: Factors
	inputs := make([]s2_signals.TickerData, 0, len(results))
	names := make(map[string]string, len(results))
	for _, r := range results {
		names[r.Member.Ticker] = r.Member.Name
		if !r.Priced() {
			continue
		}
		inputs = append(inputs, s2_signals.TickerData{
			Ticker:       r.Member.Ticker,
			Name:         r.Member.Name,
			History:      r.History,
			Fundamentals: r.Fundamentals,
		})
	}

	built, err := o.signals.Build(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("S2 factors: %w", err)
	}
	dropped := built.Dropped
	for _, r := range results {
		if !r.Priced() {
			reason := "no price data"
			if r.PriceErr != nil {
				reason = r.PriceErr.Error()
			}
			dropped[r.Member.Ticker] = reason
		}
	}

	// S3/S4: Normalize + rank
	ranking, err := o.ranker.RankUniverse(ctx, built.Table, o.strategy.Weights())
	if err != nil {
		return nil, fmt.Errorf("S4 rank: %w", err)
	}

	ranking.RunID = runID
	ranking.Universe = config.Universe
	ranking.AsOf = asOf
	ranking.CreatedAt = o.now().UTC()
	ranking.StrategyHash = o.strategyHash
	for i := range ranking.Scores {
		ranking.Scores[i].Name = names[ranking.Scores[i].Ticker]
	}

	o.publish(ctx, log, ranking)

	topN := config.TopN
	if topN <= 0 {
		topN = o.strategy.Ranking.TopN
	}

	result := &RunResult{
		Ranking:  ranking,
		Top:      ranking.TopN(topN),
		Quality:  snapshot,
		Dropped:  dropped,
		Duration: o.now().Sub(started),
	}

	log.WithFields(map[string]interface{}{
		"ranked":   ranking.Len(),
		"dropped":  len(dropped),
		"duration": result.Duration.Seconds(),
	}).Info("Ranking run completed")

	return result, nil
}

// publish stores the ranking. Persistence failures are logged; the run result stands.
func (o *Orchestrator) publish(ctx context.Context, log *logger.Logger, ranking *contracts.Ranking) {
	o.mu.Lock()
	o.latest[ranking.Universe] = ranking
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.SaveRanking(ctx, ranking); err != nil {
			log.WithError(err).Error("Failed to save ranking")
		}
	}
	if o.cache != nil {
		if err := o.cache.Set(ctx, redis.LatestRankingKey(ranking.Universe), ranking, o.cacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache ranking")
		}
	}
}

// LatestRanking returns the newest ranking of a universe: cache, then store,
// then the last run of this process.
func (o *Orchestrator) LatestRanking(ctx context.Context, universe string) (*contracts.Ranking, error) {
	if o.cache != nil {
		var cached contracts.Ranking
		hit, err := o.cache.Get(ctx, redis.LatestRankingKey(universe), &cached)
		if err != nil {
			o.logger.WithError(err).Warn("Ranking cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	if o.store != nil {
		ranking, err := o.store.LatestRanking(ctx, universe)
		if err == nil {
			if o.cache != nil {
				_ = o.cache.Set(ctx, redis.LatestRankingKey(universe), ranking, o.cacheTTL)
			}
			return ranking, nil
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			return nil, err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if ranking, ok := o.latest[universe]; ok {
		return ranking, nil
	}
	return nil, fmt.Errorf("ranking for %s: %w", universe, contracts.ErrNotFound)
}

// TickerHistory returns a ticker's recent positions, newest first.
// An empty universe searches all universes.
func (o *Orchestrator) TickerHistory(ctx context.Context, ticker, universe string, limit int) ([]contracts.TickerRankPoint, error) {
	if o.store != nil {
		return o.store.TickerHistory(ctx, ticker, universe, limit)
	}

	// 저장소가 없으면 이 프로세스의 최신 랭킹만
	o.mu.Lock()
	defer o.mu.Unlock()

	var points []contracts.TickerRankPoint
	for name, ranking := range o.latest {
		if universe != "" && name != universe {
			continue
		}
		s, ok := ranking.Find(ticker)
		if !ok {
			continue
		}
		points = append(points, contracts.TickerRankPoint{
			RunID:        ranking.RunID,
			Universe:     ranking.Universe,
			AsOf:         ranking.AsOf,
			Rank:         s.Rank,
			Score:        s.Score,
			UniverseSize: ranking.Len(),
			Factors:      s.Breakdown.Clone(),
		})
	}
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}
