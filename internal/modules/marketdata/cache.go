package marketdata

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// StatsCache persists computed MarketData, msgpack encoded, with an expiry.
type StatsCache struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewStatsCache creates a cache over a database migrated with the cache schema.
func NewStatsCache(db *sql.DB, log zerolog.Logger) *StatsCache {
	return &StatsCache{
		db:  db,
		now: time.Now,
		log: log.With().Str("component", "stats_cache").Logger(),
	}
}

// hashTickers creates a deterministic hash from a list of tickers for cache keys.
// Tickers are sorted so the input order does not matter.
func hashTickers(tickers []string) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h[:16])
}

// cacheKey identifies the statistics of a ticker set over a period. Order
// matters for the payload layout, so it is part of the key.
func cacheKey(tickers []string, period string) string {
	return hashTickers(tickers) + ":" + strings.Join(tickers, ",") + ":" + period
}

// Get returns the entry under key unless it is absent or expired.
func (c *StatsCache) Get(ctx context.Context, key string) (*MarketData, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM market_cache WHERE cache_key = ? AND expires_at > ?`,
		key, c.now().Unix(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var md MarketData
	if err := msgpack.Unmarshal(payload, &md); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &md, true, nil
}

// Put stores md under key for ttl.
func (c *StatsCache) Put(ctx context.Context, key string, md *MarketData, ttl time.Duration) error {
	payload, err := msgpack.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO market_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)`,
		key, payload, c.now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// EvictExpired deletes expired entries and returns how many went.
func (c *StatsCache) EvictExpired(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM market_cache WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to evict cache entries: %w", err)
	}
	return result.RowsAffected()
}

// Clear deletes every entry.
func (c *StatsCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM market_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
