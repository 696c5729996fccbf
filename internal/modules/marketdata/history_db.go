// Package marketdata stores daily closing prices and turns them into the
// mean/covariance inputs and rebased price tables the simulation and analysis
// modules consume.
package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/database"
	"github.com/rs/zerolog"
)

// DateLayout is the storage and wire format of price dates.
const DateLayout = "2006-01-02"

// ErrInvalidPrice is returned for a price row that cannot be stored.
var ErrInvalidPrice = errors.New("invalid price")

// DailyPrice is one closing price.
type DailyPrice struct {
	Date  string  `json:"date" msgpack:"date"`
	Close float64 `json:"close" msgpack:"close"`
}

// HistoryDB provides access to historical price data
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

func validatePrice(p DailyPrice) error {
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidPrice, p.Date)
	}
	if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
		return fmt.Errorf("%w: close %g on %s", ErrInvalidPrice, p.Close, p.Date)
	}
	return nil
}

// UpsertPrices inserts or replaces prices of one ticker in a single transaction.
// The whole batch is rejected if any row is invalid.
func (h *HistoryDB) UpsertPrices(ctx context.Context, ticker string, prices []DailyPrice) error {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return fmt.Errorf("%w: empty ticker", ErrInvalidPrice)
	}
	for _, p := range prices {
		if err := validatePrice(p); err != nil {
			return err
		}
	}

	now := time.Now().Unix()
	err := database.WithTransaction(h.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO daily_prices (ticker, date, close, updated_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range prices {
			if _, err := stmt.ExecContext(ctx, ticker, p.Date, p.Close, now); err != nil {
				return fmt.Errorf("failed to insert daily price for %s: %w", p.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info().
		Str("ticker", ticker).
		Int("count", len(prices)).
		Msg("Stored daily prices")

	return nil
}

// GetPrices returns the prices of each ticker on or after from, ascending by
// date. An empty from means all history. Tickers without data are absent.
func (h *HistoryDB) GetPrices(ctx context.Context, tickers []string, from string) (map[string][]DailyPrice, error) {
	out := make(map[string][]DailyPrice, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	args := make([]interface{}, 0, len(tickers)+1)
	args = append(args, from)
	for _, t := range tickers {
		args = append(args, t)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tickers)), ",")

	query := `
		SELECT ticker, date, close
		FROM daily_prices
		WHERE date >= ? AND ticker IN (` + placeholders + `)
		ORDER BY ticker, date ASC
	`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var p DailyPrice
		if err := rows.Scan(&ticker, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		out[ticker] = append(out[ticker], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return out, nil
}

// Tickers lists the tickers with stored prices.
func (h *HistoryDB) Tickers(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM daily_prices ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	tickers := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// DeleteOlderThan removes prices dated before cutoff and returns how many rows went.
func (h *HistoryDB) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := h.db.ExecContext(ctx,
		`DELETE FROM daily_prices WHERE date < ?`, cutoff.UTC().Format(DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	return result.RowsAffected()
}
