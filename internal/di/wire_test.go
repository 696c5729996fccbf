package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		DataDir: dataDir,
		Port:    8001,
		Simulation: config.SimulationConfig{
			Count:          100,
			MaxSimulations: 1000,
			Buckets:        10,
			SamplingPolicy: "dirichlet",
			ValidationMode: "strict",
			Workers:        2,
			StreamChunk:    50,
		},
		Market: config.MarketConfig{
			CacheTTL:        time.Minute,
			RetentionDays:   365,
			CleanupSchedule: "0 0 3 * * *",
		},
	}
}

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()

	container, err := InitializeDatabases(testConfig(tmpDir), zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.CacheDB)
	assert.FileExists(t, filepath.Join(tmpDir, "history.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "cache.db"))

	var n int
	require.NoError(t, container.HistoryDB.Conn().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'daily_prices'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestInitializeServices_RequiresDatabases(t *testing.T) {
	err := InitializeServices(&Container{}, testConfig(t.TempDir()), zerolog.Nop())
	assert.Error(t, err)
}

func TestRegisterJobs_RequiresContainer(t *testing.T) {
	_, err := RegisterJobs(nil, testConfig(t.TempDir()), zerolog.Nop())
	assert.Error(t, err)
}

func TestWire(t *testing.T) {
	cfg := testConfig(t.TempDir())

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.MarketData)
	assert.NotNil(t, container.Simulator)
	assert.NotNil(t, container.AnalysisService)
	assert.Equal(t, simulation.PolicyDirichlet, container.Sampler.Policy())

	require.NotNil(t, container.Scheduler)
	assert.Equal(t, 3, container.Scheduler.Entries())
	assert.Equal(t, "history_cleanup", jobs.HistoryCleanup.Name())
	assert.Equal(t, "market_cache_eviction", jobs.CacheEviction.Name())
	assert.Equal(t, "database_maintenance", jobs.DatabaseMaintenance.Name())

	_, ok := container.Scheduler.Job("history_cleanup")
	assert.True(t, ok)

	// The wired pieces talk to each other.
	ctx := context.Background()
	require.NoError(t, container.MarketData.IngestPrices(ctx, "A", []marketdata.DailyPrice{
		{Date: "2024-01-02", Close: 10},
		{Date: "2024-01-03", Close: 11},
		{Date: "2024-01-04", Close: 12},
	}))
	md, err := container.MarketData.Load(ctx, []string{"A"}, "max")
	require.NoError(t, err)
	assert.Len(t, md.RawPrices, 3)

	assert.NoError(t, container.Scheduler.RunNow(jobs.CacheEviction))
	assert.NoError(t, container.Scheduler.RunNow(jobs.DatabaseMaintenance))
}

func TestWire_InvalidPolicy(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Simulation.SamplingPolicy = "sobol"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, simulation.ErrUnknownSamplingPolicy)
}
