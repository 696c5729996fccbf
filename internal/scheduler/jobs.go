package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// jobTimeout bounds a single maintenance run.
const jobTimeout = 5 * time.Minute

// HistoryCleanupJob prunes price history beyond the retention window
type HistoryCleanupJob struct {
	log       zerolog.Logger
	history   PriceHistoryPruner
	retention time.Duration
	now       func() time.Time
}

// NewHistoryCleanupJob creates a job that keeps retentionDays of price history
func NewHistoryCleanupJob(history PriceHistoryPruner, retentionDays int) *HistoryCleanupJob {
	return &HistoryCleanupJob{
		log:       zerolog.Nop(),
		history:   history,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// SetLogger sets the logger for the job
func (j *HistoryCleanupJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *HistoryCleanupJob) Name() string {
	return "history_cleanup"
}

// Run executes the history cleanup job
func (j *HistoryCleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	cutoff := j.now().Add(-j.retention)
	deleted, err := j.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune price history: %w", err)
	}

	j.log.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Price history pruned")

	return nil
}

// CacheEvictionJob drops expired statistics cache entries
type CacheEvictionJob struct {
	log   zerolog.Logger
	cache CacheEvictor
}

// NewCacheEvictionJob creates a new CacheEvictionJob
func NewCacheEvictionJob(cache CacheEvictor) *CacheEvictionJob {
	return &CacheEvictionJob{
		log:   zerolog.Nop(),
		cache: cache,
	}
}

// SetLogger sets the logger for the job
func (j *CacheEvictionJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *CacheEvictionJob) Name() string {
	return "market_cache_eviction"
}

// Run executes the cache eviction job
func (j *CacheEvictionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	evicted, err := j.cache.EvictExpired(ctx)
	if err != nil {
		return err
	}

	j.log.Info().Int64("evicted", evicted).Msg("Expired market data evicted")
	return nil
}

// DatabaseMaintenanceJob verifies database integrity and truncates WAL files
type DatabaseMaintenanceJob struct {
	log       zerolog.Logger
	databases []MaintainedDB
}

// NewDatabaseMaintenanceJob creates a new DatabaseMaintenanceJob
func NewDatabaseMaintenanceJob(databases ...MaintainedDB) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log:       zerolog.Nop(),
		databases: databases,
	}
}

// SetLogger sets the logger for the job
func (j *DatabaseMaintenanceJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run checks every database and checkpoints the healthy ones. A corrupted
// database fails the run; the others are still processed.
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	var errs []error
	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}

		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().
				Err(err).
				Str("database", db.Name()).
				Msg("Database integrity check failed")
			errs = append(errs, fmt.Errorf("database %s: %w", db.Name(), err))
			continue
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().
				Err(err).
				Str("database", db.Name()).
				Msg("Failed to checkpoint WAL")
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database maintenance OK")
		checked++
	}

	j.log.Info().Int("checked", checked).Msg("Database maintenance completed")
	return errors.Join(errs...)
}
