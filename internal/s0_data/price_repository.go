package s0_data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/quantsnap/internal/contracts"
)

// SavePriceHistory upserts every bar of a history
// ⭐ SSOT: 가격 데이터 저장은 여기서만
func (r *Repository) SavePriceHistory(ctx context.Context, history *contracts.PriceHistory) error {
	if history.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO market.daily_prices (ticker, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	ticker := strings.ToUpper(history.Ticker)
	batch := &pgx.Batch{}
	for _, bar := range history.Bars {
		batch.Queue(query, ticker, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save prices of %s: %w", ticker, err)
	}
	return nil
}

// LoadPriceHistory reads the bars of a ticker from a date onwards, ascending.
// No rows is contracts.ErrNotFound.
func (r *Repository) LoadPriceHistory(ctx context.Context, ticker string, from time.Time) (*contracts.PriceHistory, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_prices
		WHERE ticker = $1 AND trade_date >= $2
		ORDER BY trade_date ASC
	`

	ticker = strings.ToUpper(ticker)
	rows, err := r.db.Query(ctx, query, ticker, from)
	if err != nil {
		return nil, fmt.Errorf("query prices of %s: %w", ticker, err)
	}
	defer rows.Close()

	history := &contracts.PriceHistory{Ticker: ticker}
	for rows.Next() {
		var bar contracts.PriceBar
		if err := rows.Scan(&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		history.Bars = append(history.Bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if history.Len() == 0 {
		return nil, fmt.Errorf("prices of %s: %w", ticker, contracts.ErrNotFound)
	}
	return history, nil
}

// PeriodStart converts a lookback period ("1mo", "6mo", "1y", ...) to its first date
func PeriodStart(period string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case "1mo":
		return today.AddDate(0, -1, 0), nil
	case "3mo":
		return today.AddDate(0, -3, 0), nil
	case "6mo":
		return today.AddDate(0, -6, 0), nil
	case "1y":
		return today.AddDate(-1, 0, 0), nil
	case "2y":
		return today.AddDate(-2, 0, 0), nil
	case "5y":
		return today.AddDate(-5, 0, 0), nil
	case "10y":
		return today.AddDate(-10, 0, 0), nil
	case "ytd":
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "max":
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}
}
