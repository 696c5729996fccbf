package scheduler

import (
	"context"
	"time"
)

// PriceHistoryPruner removes old price rows.
// Implemented by marketdata.HistoryDB.
type PriceHistoryPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CacheEvictor removes expired statistics cache entries.
// Implemented by marketdata.StatsCache.
type CacheEvictor interface {
	EvictExpired(ctx context.Context) (int64, error)
}

// MaintainedDB is a database the maintenance job can check and checkpoint.
// Implemented by database.DB.
type MaintainedDB interface {
	Name() string
	HealthCheck(ctx context.Context) error
	WALCheckpoint(mode string) error
}
