package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	testingpkg "github.com/aristath/frontier/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryDB_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	history := NewHistoryDB(testingpkg.NewTestDB(t, "history").Conn(), zerolog.Nop())

	require.NoError(t, history.UpsertPrices(ctx, "PETR4.SA", dailySeries("2024-01-01", 30, 31, 32)))
	require.NoError(t, history.UpsertPrices(ctx, "VALE3.SA", dailySeries("2024-01-02", 60, 61)))

	// Replacing an existing day keeps one row.
	require.NoError(t, history.UpsertPrices(ctx, "PETR4.SA", []DailyPrice{{Date: "2024-01-03", Close: 33}}))

	prices, err := history.GetPrices(ctx, []string{"PETR4.SA", "VALE3.SA", "ITUB4.SA"}, "")
	require.NoError(t, err)

	assert.Equal(t, []DailyPrice{
		{Date: "2024-01-01", Close: 30},
		{Date: "2024-01-02", Close: 31},
		{Date: "2024-01-03", Close: 33},
	}, prices["PETR4.SA"])
	assert.Len(t, prices["VALE3.SA"], 2)
	assert.NotContains(t, prices, "ITUB4.SA")

	recent, err := history.GetPrices(ctx, []string{"PETR4.SA"}, "2024-01-02")
	require.NoError(t, err)
	assert.Len(t, recent["PETR4.SA"], 2)

	tickers, err := history.Tickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4.SA", "VALE3.SA"}, tickers)
}

func TestHistoryDB_RejectsInvalidPrices(t *testing.T) {
	ctx := context.Background()
	history := NewHistoryDB(testingpkg.NewTestDB(t, "history").Conn(), zerolog.Nop())

	tests := []struct {
		name   string
		ticker string
		prices []DailyPrice
	}{
		{"empty ticker", " ", dailySeries("2024-01-01", 1)},
		{"bad date", "A", []DailyPrice{{Date: "01/02/2024", Close: 1}}},
		{"zero close", "A", []DailyPrice{{Date: "2024-01-02", Close: 0}}},
		{"nan close", "A", []DailyPrice{{Date: "2024-01-02", Close: math.NaN()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := history.UpsertPrices(ctx, tt.ticker, tt.prices)
			assert.ErrorIs(t, err, ErrInvalidPrice)
		})
	}

	// A bad row rejects the whole batch.
	batch := append(dailySeries("2024-01-01", 1, 2), DailyPrice{Date: "2024-01-05", Close: -1})
	require.ErrorIs(t, history.UpsertPrices(ctx, "A", batch), ErrInvalidPrice)
	prices, err := history.GetPrices(ctx, []string{"A"}, "")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestHistoryDB_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	history := NewHistoryDB(testingpkg.NewTestDB(t, "history").Conn(), zerolog.Nop())

	require.NoError(t, history.UpsertPrices(ctx, "A", dailySeries("2024-01-01", 1, 2, 3, 4)))

	deleted, err := history.DeleteOlderThan(ctx, time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	prices, err := history.GetPrices(ctx, []string{"A"}, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", prices["A"][0].Date)
}

func TestHistoryDB_GetPricesNoTickers(t *testing.T) {
	history := NewHistoryDB(testingpkg.NewTestDB(t, "history").Conn(), zerolog.Nop())

	prices, err := history.GetPrices(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, prices)
}
