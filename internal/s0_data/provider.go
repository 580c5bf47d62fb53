package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/quantsnap/internal/contracts"
	"github.com/wonny/quantsnap/pkg/logger"
	"github.com/wonny/quantsnap/pkg/redis"
)

// Store is the persistence used by Provider for write-through and stale fallback.
// *Repository implements it.
type Store interface {
	SavePriceHistory(ctx context.Context, history *contracts.PriceHistory) error
	LoadPriceHistory(ctx context.Context, ticker string, from time.Time) (*contracts.PriceHistory, error)
	SaveFundamentals(ctx context.Context, f *contracts.Fundamentals) error
	LatestFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error)
}

// Provider layers the Redis cache and the database in front of the upstream APIs.
// Lookup order: cache, upstream (then write-through), stored copy when upstream fails.
// It implements contracts.PriceProvider and contracts.FundamentalsProvider.
// ⭐ SSOT: S0 데이터 조회 경로는 여기서만
type Provider struct {
	prices       contracts.PriceProvider
	fundamentals contracts.FundamentalsProvider
	cache        *redis.Cache
	store        Store
	ttl          time.Duration
	logger       *logger.Logger
	now          func() time.Time
}

// NewProvider creates a provider. fundamentals, cache and store may be nil.
func NewProvider(prices contracts.PriceProvider, fundamentals contracts.FundamentalsProvider, log *logger.Logger) *Provider {
	return &Provider{
		prices:       prices,
		fundamentals: fundamentals,
		ttl:          redis.TTLDaily,
		logger:       log,
		now:          time.Now,
	}
}

// WithCache enables the Redis cache layer
func (p *Provider) WithCache(cache *redis.Cache, ttl time.Duration) *Provider {
	p.cache = cache
	if ttl > 0 {
		p.ttl = ttl
	}
	return p
}

// WithStore enables database write-through and fallback
func (p *Provider) WithStore(store Store) *Provider {
	p.store = store
	return p
}

// HasFundamentals reports whether a fundamentals source is configured
func (p *Provider) HasFundamentals() bool {
	return p.fundamentals != nil
}

// GetPriceHistory returns daily bars for a lookback period
func (p *Provider) GetPriceHistory(ctx context.Context, ticker, period string) (*contracts.PriceHistory, error) {
	key := redis.PriceHistoryKey(ticker, period)

	if p.cache != nil {
		var cached contracts.PriceHistory
		found, err := p.cache.Get(ctx, key, &cached)
		if err != nil {
			p.logger.WithError(err).WithTicker(ticker).Warn("Price cache read failed")
		}
		if found && cached.Len() > 0 {
			return &cached, nil
		}
	}

	history, err := p.prices.GetPriceHistory(ctx, ticker, period)
	if err != nil {
		return p.storedPrices(ctx, ticker, period, err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, history, p.ttl); err != nil {
			p.logger.WithError(err).WithTicker(ticker).Warn("Price cache write failed")
		}
	}
	if p.store != nil {
		if err := p.store.SavePriceHistory(ctx, history); err != nil {
			p.logger.WithError(err).WithTicker(ticker).Warn("Failed to store prices")
		}
	}

	return history, nil
}

func (p *Provider) storedPrices(ctx context.Context, ticker, period string, upstreamErr error) (*contracts.PriceHistory, error) {
	if p.store == nil || ctx.Err() != nil {
		return nil, upstreamErr
	}

	from, err := PeriodStart(period, p.now())
	if err != nil {
		return nil, upstreamErr
	}

	history, err := p.store.LoadPriceHistory(ctx, ticker, from)
	if err != nil {
		return nil, upstreamErr
	}

	p.logger.WithFields(map[string]interface{}{
		"ticker":    ticker,
		"bars":      history.Len(),
		"last_date": history.LastDate().Format("2006-01-02"),
	}).WithError(upstreamErr).Warn("Upstream prices unavailable, using stored copy")

	return history, nil
}

// GetFundamentals returns the latest fundamentals snapshot.
// Without a fundamentals source it returns contracts.ErrNotFound.
func (p *Provider) GetFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	key := redis.FundamentalsKey(ticker)

	if p.cache != nil {
		var cached contracts.Fundamentals
		found, err := p.cache.Get(ctx, key, &cached)
		if err != nil {
			p.logger.WithError(err).WithTicker(ticker).Warn("Fundamentals cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	if p.fundamentals == nil {
		return p.storedFundamentals(ctx, ticker, fmt.Errorf("fundamentals of %s: %w", ticker, contracts.ErrNotFound))
	}

	f, err := p.fundamentals.GetFundamentals(ctx, ticker)
	if err != nil {
		return p.storedFundamentals(ctx, ticker, err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, f, p.ttl); err != nil {
			p.logger.WithError(err).WithTicker(ticker).Warn("Fundamentals cache write failed")
		}
	}
	if p.store != nil {
		if err := p.store.SaveFundamentals(ctx, f); err != nil {
			p.logger.WithError(err).WithTicker(ticker).Warn("Failed to store fundamentals")
		}
	}

	return f, nil
}

func (p *Provider) storedFundamentals(ctx context.Context, ticker string, upstreamErr error) (*contracts.Fundamentals, error) {
	if p.store == nil || ctx.Err() != nil {
		return nil, upstreamErr
	}

	f, err := p.store.LatestFundamentals(ctx, ticker)
	if err != nil {
		return nil, upstreamErr
	}

	if !errors.Is(upstreamErr, contracts.ErrNotFound) {
		p.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"as_of":  f.AsOf.Format("2006-01-02"),
		}).WithError(upstreamErr).Warn("Upstream fundamentals unavailable, using stored copy")
	}
	return f, nil
}
