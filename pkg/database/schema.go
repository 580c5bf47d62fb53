package database

import (
	"context"
	"fmt"
)

// schema is applied idempotently by Migrate.
// price/fundamentals tables are the S0 cache, ranking_* tables are immutable run snapshots.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE SCHEMA IF NOT EXISTS ranking`,
	`CREATE TABLE IF NOT EXISTS market.companies (
		ticker      TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		sector      TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS market.daily_prices (
		ticker      TEXT NOT NULL,
		trade_date  DATE NOT NULL,
		open_price  DOUBLE PRECISION NOT NULL,
		high_price  DOUBLE PRECISION NOT NULL,
		low_price   DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT NOT NULL,
		PRIMARY KEY (ticker, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS market.fundamentals (
		ticker      TEXT NOT NULL,
		as_of       DATE NOT NULL,
		metrics     JSONB NOT NULL,
		PRIMARY KEY (ticker, as_of)
	)`,
	`CREATE TABLE IF NOT EXISTS market.universe_members (
		universe    TEXT NOT NULL,
		ticker      TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		sector      TEXT NOT NULL DEFAULT '',
		position    INT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (universe, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS market.quality_snapshots (
		universe      TEXT NOT NULL,
		snapshot_date DATE NOT NULL,
		total_tickers INT NOT NULL,
		valid_tickers INT NOT NULL,
		coverage      JSONB NOT NULL,
		quality_score DOUBLE PRECISION NOT NULL,
		passed        BOOLEAN NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (universe, snapshot_date)
	)`,
	`CREATE TABLE IF NOT EXISTS ranking.runs (
		run_id        TEXT PRIMARY KEY,
		universe      TEXT NOT NULL,
		as_of         DATE NOT NULL,
		strategy_hash TEXT NOT NULL DEFAULT '',
		weights       JSONB NOT NULL DEFAULT '{}',
		degenerate    TEXT[] NOT NULL DEFAULT '{}',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_universe_created ON ranking.runs (universe, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ranking.rows (
		run_id      TEXT NOT NULL REFERENCES ranking.runs(run_id) ON DELETE CASCADE,
		ticker      TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		rank        INT NOT NULL,
		score       DOUBLE PRECISION NOT NULL,
		factors     JSONB NOT NULL,
		normalized  JSONB NOT NULL,
		PRIMARY KEY (run_id, ticker)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rows_ticker ON ranking.rows (ticker)`,
}

// Migrate creates the tables used by the repositories if they are missing
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
