package s0_data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantsnap/internal/contracts"
)

// Repository handles data persistence for S0: daily prices, fundamentals
// snapshots and company names.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveFundamentals stores a snapshot keyed by ticker and as-of date
func (r *Repository) SaveFundamentals(ctx context.Context, f *contracts.Fundamentals) error {
	metrics, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fundamentals: %w", err)
	}

	query := `
		INSERT INTO market.fundamentals (ticker, as_of, metrics)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, as_of) DO UPDATE SET metrics = EXCLUDED.metrics
	`

	if _, err := r.db.Exec(ctx, query, strings.ToUpper(f.Ticker), f.AsOf, metrics); err != nil {
		return fmt.Errorf("insert fundamentals of %s: %w", f.Ticker, err)
	}

	if f.Name != "" || f.Sector != "" {
		return r.UpsertCompanies(ctx, []contracts.UniverseMember{{Ticker: f.Ticker, Name: f.Name, Sector: f.Sector}})
	}
	return nil
}

// LatestFundamentals returns the newest stored snapshot of a ticker
func (r *Repository) LatestFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	query := `
		SELECT metrics
		FROM market.fundamentals
		WHERE ticker = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	var metrics []byte
	err := r.db.QueryRow(ctx, query, strings.ToUpper(ticker)).Scan(&metrics)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fundamentals of %s: %w", ticker, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}

	var f contracts.Fundamentals
	if err := json.Unmarshal(metrics, &f); err != nil {
		return nil, fmt.Errorf("unmarshal fundamentals: %w", err)
	}
	return &f, nil
}

// UpsertCompanies records display names and sectors. Empty values never overwrite stored ones.
func (r *Repository) UpsertCompanies(ctx context.Context, members []contracts.UniverseMember) error {
	if len(members) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.companies (ticker, name, sector, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), market.companies.name),
			sector = COALESCE(NULLIF(EXCLUDED.sector, ''), market.companies.sector),
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, m := range members {
		batch.Queue(query, strings.ToUpper(m.Ticker), m.Name, m.Sector)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert companies: %w", err)
	}
	return nil
}
