package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantsnap/internal/brain"
	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/internal/external/alphavantage"
	"github.com/wonny/quantsnap/internal/external/yahoo"
	"github.com/wonny/quantsnap/internal/s0_data"
	"github.com/wonny/quantsnap/internal/s0_data/collector"
	"github.com/wonny/quantsnap/internal/s0_data/quality"
	"github.com/wonny/quantsnap/internal/s1_universe"
	"github.com/wonny/quantsnap/internal/selection"
	"github.com/wonny/quantsnap/internal/strategyconfig"
	"github.com/wonny/quantsnap/pkg/config"
	"github.com/wonny/quantsnap/pkg/database"
	"github.com/wonny/quantsnap/pkg/httputil"
	"github.com/wonny/quantsnap/pkg/logger"
	"github.com/wonny/quantsnap/pkg/redis"
)

// localCacheEntries bounds the in-process cache used without Redis
// (two entries per ticker of a full S&P 500 run plus rankings)
const localCacheEntries = 2048

// app holds every wired dependency of a command
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	strategy *strategyconfig.Config

	quota        *redis.QuotaCounter
	provider     *s0_data.Provider
	loader       *s1_universe.Loader
	collector    *collector.Collector
	gate         *quality.Gate
	orchestrator *brain.Orchestrator

	// nil without a database
	dataRepo     *s0_data.Repository
	qualityRepo  *quality.Repository
	rankingRepo  *selection.Repository
	universeRepo *s1_universe.Repository
}

// newApp loads configuration and wires the pipeline.
// Database and Redis are optional; without them runs stay in memory.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	// 3. Strategy
	a.strategy = strategyconfig.Default()
	if cfg.Ranking.StrategyFile != "" {
		s, _, err := strategyconfig.Load(cfg.Ranking.StrategyFile)
		if err != nil {
			return nil, fmt.Errorf("load strategy: %w", err)
		}
		a.strategy = s
	}
	if cfg.Ranking.TopN > 0 && a.strategy.Ranking.TopN == 0 {
		a.strategy.Ranking.TopN = cfg.Ranking.TopN
	}

	// 4. Redis (no-op client when disabled)
	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	limiter := redis.NewRateLimiter(a.redis, cfg.Redis.Prefix)

	// 5. Database
	if cfg.Database.Enabled() {
		a.db, err = database.New(ctx, cfg.Database)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := a.db.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.dataRepo = s0_data.NewRepository(a.db.Pool)
		a.qualityRepo = quality.NewRepository(a.db.Pool)
		a.rankingRepo = selection.NewRepository(a.db.Pool)
		a.universeRepo = s1_universe.NewRepository(a.db.Pool)
	} else {
		log.Warn("DATABASE_URL not set, rankings are kept in memory only")
	}

	// 6. External API clients
	yahooHTTP := httputil.New(log, cfg.Yahoo.Timeout).
		WithLocalLimit(cfg.Yahoo.RequestsPerSec, 1).
		WithRateLimiter(limiter, redis.YahooRateLimit)
	prices := yahoo.NewClient(yahooHTTP, cfg.Yahoo.BaseURL, log)

	var fundamentals contracts.FundamentalsProvider
	if cfg.AlphaVantage.Enabled() {
		avHTTP := httputil.New(log, cfg.AlphaVantage.Timeout).
			WithRateLimiter(limiter, redis.AlphaVantageRateLimit(cfg.AlphaVantage.PerMinute))
		a.quota = redis.NewQuotaCounter(a.redis, cfg.Redis.Prefix, "alphavantage", cfg.AlphaVantage.DailyLimit)
		fundamentals = alphavantage.NewClient(avHTTP, a.quota, cfg.AlphaVantage.BaseURL, cfg.AlphaVantage.APIKey, log).
			WithBalanceSheet(cfg.AlphaVantage.BalanceSheet)
	} else {
		log.Warn("ALPHA_VANTAGE_API_KEY not set, reputation factors use neutral scores")
	}

	// 7. S0 provider: cache → upstream → stored copy
	cache := redis.NewCache(a.redis, cfg.Redis.Prefix).WithLocalFallback(localCacheEntries)
	a.provider = s0_data.NewProvider(prices, fundamentals, log).
		WithCache(cache, cfg.Redis.CacheTTL)
	if a.dataRepo != nil {
		a.provider.WithStore(a.dataRepo)
	}
	a.collector = collector.NewCollector(a.provider, a.provider, log)
	a.gate = quality.NewGate(a.strategy.Quality)

	// 8. S1 universes
	wikiHTTP := httputil.New(log, 20*time.Second)
	a.loader = s1_universe.NewLoader(cfg.Ranking.UniverseDir, s1_universe.NewBuilder(a.strategy.Universe), log).
		WithWikipedia(s1_universe.NewWikipediaSource(wikiHTTP, s1_universe.DefaultWikipediaURL, log))
	if a.universeRepo != nil {
		a.loader.WithStore(a.universeRepo)
	}

	// 9. Orchestrator
	a.orchestrator, err = brain.NewOrchestrator(a.loader, a.collector, a.strategy, a.collectConfig(false), log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.orchestrator.WithCache(cache, redis.TTLMedium)
	if a.rankingRepo != nil {
		a.orchestrator.WithStore(a.rankingRepo).WithSnapshotStore(a.qualityRepo)
	}

	return a, nil
}

func (a *app) collectConfig(skipFundamentals bool) collector.Config {
	return collector.Config{
		Workers:          a.cfg.Ranking.Workers,
		Period:           a.cfg.Ranking.Period,
		SkipFundamentals: skipFundamentals,
	}
}

// runContext bounds a whole ranking run (RUN_TIMEOUT)
func (a *app) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, a.cfg.Ranking.RunTimeout)
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
