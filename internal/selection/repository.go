package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wonny/quantsnap/internal/contracts"
)

// Repository persists ranking snapshots. Runs are append-only: a new run
// supersedes the previous one without touching it.
// ⭐ SSOT: 랭킹 데이터 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new ranking repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRanking stores the run header and one row per ticker in a single transaction
func (r *Repository) SaveRanking(ctx context.Context, ranking *contracts.Ranking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	degenerate := ranking.Degenerate
	if degenerate == nil {
		degenerate = []string{}
	}

	weights, err := json.Marshal(ranking.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ranking.runs (run_id, universe, as_of, strategy_hash, weights, degenerate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ranking.RunID, ranking.Universe, ranking.AsOf, ranking.StrategyHash, weights, degenerate, ranking.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range ranking.Scores {
		factors, err := json.Marshal(s.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal factors of %s: %w", s.Ticker, err)
		}
		normalized, err := json.Marshal(s.Normalized)
		if err != nil {
			return fmt.Errorf("failed to marshal normalized factors of %s: %w", s.Ticker, err)
		}
		batch.Queue(`
			INSERT INTO ranking.rows (run_id, ticker, name, rank, score, factors, normalized)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, ranking.RunID, s.Ticker, s.Name, s.Rank, s.Score, factors, normalized)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert ranking rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestRanking loads the most recent run of a universe
func (r *Repository) LatestRanking(ctx context.Context, universe string) (*contracts.Ranking, error) {
	ranking := &contracts.Ranking{Universe: universe}
	var weights []byte

	err := r.pool.QueryRow(ctx, `
		SELECT run_id, as_of, strategy_hash, weights, degenerate, created_at
		FROM ranking.runs
		WHERE universe = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, universe).Scan(&ranking.RunID, &ranking.AsOf, &ranking.StrategyHash, &weights, &ranking.Degenerate, &ranking.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ranking for %s: %w", universe, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	if err := json.Unmarshal(weights, &ranking.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, name, rank, score, factors, normalized
		FROM ranking.rows
		WHERE run_id = $1
		ORDER BY rank ASC
	`, ranking.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking rows: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var s contracts.CompositeScore
		var factors, normalized []byte
		if err := rows.Scan(&s.Ticker, &s.Name, &s.Rank, &s.Score, &factors, &normalized); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(factors, &s.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal factors: %w", err)
		}
		if err := json.Unmarshal(normalized, &s.Normalized); err != nil {
			return nil, fmt.Errorf("failed to unmarshal normalized factors: %w", err)
		}
		for name := range s.Breakdown {
			columns[name] = struct{}{}
		}
		ranking.Scores = append(ranking.Scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	ranking.Columns = sortedKeys(columns)
	return ranking, nil
}

// TickerHistory returns a ticker's most recent positions in a universe, newest first
func (r *Repository) TickerHistory(ctx context.Context, ticker, universe string, limit int) ([]contracts.TickerRankPoint, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, `
		SELECT r.run_id, r.universe, r.as_of, w.rank, w.score, w.factors,
		       (SELECT COUNT(*) FROM ranking.rows c WHERE c.run_id = r.run_id) AS universe_size
		FROM ranking.rows w
		JOIN ranking.runs r ON r.run_id = w.run_id
		WHERE w.ticker = $1 AND ($2 = '' OR r.universe = $2)
		ORDER BY r.created_at DESC
		LIMIT $3
	`, ticker, universe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticker history: %w", err)
	}
	defer rows.Close()

	var points []contracts.TickerRankPoint
	for rows.Next() {
		var p contracts.TickerRankPoint
		var factors []byte
		if err := rows.Scan(&p.RunID, &p.Universe, &p.AsOf, &p.Rank, &p.Score, &factors, &p.UniverseSize); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal(factors, &p.Factors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal factors: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return points, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
