package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantsnap/internal/contracts"
)

// Repository handles data quality snapshot persistence
// ⭐ SSOT: S0 품질 스냅샷 저장/조회
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new quality repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSnapshot saves a data quality snapshot, one per universe and day
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	coverage, err := json.Marshal(snapshot.Coverage)
	if err != nil {
		return fmt.Errorf("marshal coverage: %w", err)
	}

	query := `
		INSERT INTO market.quality_snapshots (
			universe, snapshot_date, total_tickers, valid_tickers,
			coverage, quality_score, passed
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (universe, snapshot_date) DO UPDATE SET
			total_tickers = EXCLUDED.total_tickers,
			valid_tickers = EXCLUDED.valid_tickers,
			coverage = EXCLUDED.coverage,
			quality_score = EXCLUDED.quality_score,
			passed = EXCLUDED.passed,
			created_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		snapshot.Universe,
		snapshot.Date,
		snapshot.TotalTickers,
		snapshot.ValidTickers,
		coverage,
		snapshot.QualityScore,
		snapshot.Passed,
	)
	if err != nil {
		return fmt.Errorf("save quality snapshot: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent quality snapshot of a universe
func (r *Repository) GetLatest(ctx context.Context, universe string) (*Snapshot, error) {
	query := `
		SELECT universe, snapshot_date, total_tickers, valid_tickers, coverage, quality_score, passed
		FROM market.quality_snapshots
		WHERE universe = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	snapshot := &Snapshot{}
	var coverage []byte

	err := r.pool.QueryRow(ctx, query, universe).Scan(
		&snapshot.Universe,
		&snapshot.Date,
		&snapshot.TotalTickers,
		&snapshot.ValidTickers,
		&coverage,
		&snapshot.QualityScore,
		&snapshot.Passed,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("quality snapshot of %s: %w", universe, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest quality snapshot: %w", err)
	}

	if err := json.Unmarshal(coverage, &snapshot.Coverage); err != nil {
		return nil, fmt.Errorf("unmarshal coverage: %w", err)
	}

	return snapshot, nil
}
