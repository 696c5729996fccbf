package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "nested", name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_CreatesDirectoryAndDefaults(t *testing.T) {
	db := newTestDB(t, "history", "")

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "history", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestBuildConnectionString(t *testing.T) {
	standard := buildConnectionString("/tmp/h.db", ProfileStandard)
	assert.Contains(t, standard, "/tmp/h.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, standard, "synchronous(NORMAL)")

	cache := buildConnectionString("/tmp/c.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")

	withQuery := buildConnectionString("file:x?mode=memory", ProfileStandard)
	assert.Contains(t, withQuery, "file:x?mode=memory&_pragma=journal_mode(WAL)")
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{"history", "daily_prices"},
		{"cache", "market_cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t, tt.name, ProfileStandard)
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate(), "migration is idempotent")

			var name string
			err := db.Conn().QueryRow(
				"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", tt.table,
			).Scan(&name)
			require.NoError(t, err)
			assert.Equal(t, tt.table, name)
		})
	}
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch", ProfileCache)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t, "history", ProfileStandard)
	require.NoError(t, db.Migrate())

	insert := func(tx *sql.Tx, ticker string) error {
		_, err := tx.Exec(`INSERT INTO daily_prices (ticker, date, close, updated_at) VALUES (?, '2024-01-02', 1.0, 0)`, ticker)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM daily_prices").Scan(&n))
		return n
	}

	require.NoError(t, WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		return insert(tx, "A")
	}))
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		require.NoError(t, insert(tx, "B"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		require.NoError(t, insert(tx, "C"))
		panic("unexpected")
	})
	assert.ErrorContains(t, err, "panic in transaction")
	assert.Equal(t, 1, count())

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

func TestGetStatsAndCheckpoint(t *testing.T) {
	db := newTestDB(t, "history", ProfileStandard)
	require.NoError(t, db.Migrate())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))
	assert.Greater(t, stats.PageCount, int64(0))

	assert.NoError(t, db.WALCheckpoint(""))
}
