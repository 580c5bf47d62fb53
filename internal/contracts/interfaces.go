package contracts

import "context"

// PriceProvider supplies daily bars (S0)
// ⭐ SSOT: S0 가격 조회 인터페이스
type PriceProvider interface {
	// GetPriceHistory returns bars for a lookback period such as "1y" or "6mo".
	// A ticker with no data returns ErrNotFound.
	GetPriceHistory(ctx context.Context, ticker, period string) (*PriceHistory, error)
}

// FundamentalsProvider supplies fundamentals/ESG snapshots (S0)
// ⭐ SSOT: S0 재무 조회 인터페이스
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
}

// UniverseLoader resolves named universes (S1)
// ⭐ SSOT: S1 유니버스 인터페이스
type UniverseLoader interface {
	GetUniverse(ctx context.Context, name string) ([]UniverseMember, error)
	ListUniverses() []string
}

// RankingStore persists and reads ranking snapshots
// ⭐ SSOT: 랭킹 저장소 인터페이스
type RankingStore interface {
	SaveRanking(ctx context.Context, ranking *Ranking) error
	LatestRanking(ctx context.Context, universe string) (*Ranking, error)
	TickerHistory(ctx context.Context, ticker, universe string, limit int) ([]TickerRankPoint, error)
}
