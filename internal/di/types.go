// Package di wires databases, services and jobs into a Container.
package di

import (
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/aristath/frontier/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// Databases:
//   - history.db: daily closing prices (durable)
//   - cache.db: computed market statistics (ephemeral)
type Container struct {
	// Databases
	HistoryDB *database.DB
	CacheDB   *database.DB

	// Repositories
	PriceHistory *marketdata.HistoryDB
	StatsCache   *marketdata.StatsCache

	// Services
	MarketData      *marketdata.Provider
	Sampler         simulation.Sampler
	Simulator       *simulation.Simulator
	AnalysisService *analysis.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered maintenance jobs for manual triggering.
type JobInstances struct {
	HistoryCleanup      scheduler.Job
	CacheEviction       scheduler.Job
	DatabaseMaintenance scheduler.Job
}

// Close closes every open database. Safe on a partially wired container.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.HistoryDB != nil {
		c.HistoryDB.Close()
	}
	if c.CacheDB != nil {
		c.CacheDB.Close()
	}
}
