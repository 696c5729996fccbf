package di

import (
	"fmt"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the maintenance jobs and schedules them on a new scheduler
// Returns JobInstances for manual triggering
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.PriceHistory == nil || container.StatsCache == nil {
		return nil, fmt.Errorf("services must be initialized first")
	}

	sched := scheduler.New(log)
	jobLog := log.With().Str("component", "jobs").Logger()

	historyCleanup := scheduler.NewHistoryCleanupJob(container.PriceHistory, cfg.Market.RetentionDays)
	historyCleanup.SetLogger(jobLog)

	cacheEviction := scheduler.NewCacheEvictionJob(container.StatsCache)
	cacheEviction.SetLogger(jobLog)

	maintenance := scheduler.NewDatabaseMaintenanceJob(container.HistoryDB, container.CacheDB)
	maintenance.SetLogger(jobLog)

	schedules := []struct {
		spec string
		job  scheduler.Job
	}{
		{cfg.Market.CleanupSchedule, historyCleanup},
		{"@every 15m", cacheEviction},
		{cfg.Market.CleanupSchedule, maintenance},
	}
	for _, s := range schedules {
		if err := sched.AddJob(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.job.Name(), err)
		}
	}

	container.Scheduler = sched

	return &JobInstances{
		HistoryCleanup:      historyCleanup,
		CacheEviction:       cacheEviction,
		DatabaseMaintenance: maintenance,
	}, nil
}
