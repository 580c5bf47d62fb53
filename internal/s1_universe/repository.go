package s1_universe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantsnap/internal/contracts"
)

// Repository handles data persistence for S1: the last resolved membership of each universe
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// SaveMembers replaces the stored membership of a universe
func (r *Repository) SaveMembers(ctx context.Context, universe string, members []contracts.UniverseMember) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM market.universe_members WHERE universe = $1`, universe); err != nil {
		return fmt.Errorf("delete members: %w", err)
	}

	batch := &pgx.Batch{}
	for i, m := range members {
		batch.Queue(`
			INSERT INTO market.universe_members (universe, ticker, name, sector, position, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (universe, ticker) DO NOTHING
		`, universe, m.Ticker, m.Name, m.Sector, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert members: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit members: %w", err)
	}
	return nil
}

// LoadMembers returns the stored membership in its original order.
// A universe never saved is contracts.ErrNotFound.
func (r *Repository) LoadMembers(ctx context.Context, universe string) ([]contracts.UniverseMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ticker, name, sector
		FROM market.universe_members
		WHERE universe = $1
		ORDER BY position ASC
	`, universe)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []contracts.UniverseMember
	for rows.Next() {
		var m contracts.UniverseMember
		if err := rows.Scan(&m.Ticker, &m.Name, &m.Sector); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("members of %s: %w", universe, contracts.ErrNotFound)
	}
	return members, nil
}
