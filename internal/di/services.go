package di

import (
	"fmt"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories and services over the open databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.HistoryDB == nil || container.CacheDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	mode, err := domain.ParseValidationMode(cfg.Simulation.ValidationMode)
	if err != nil {
		return err
	}
	sampler, err := simulation.NewSampler(cfg.Simulation.SamplingPolicy)
	if err != nil {
		return err
	}

	container.PriceHistory = marketdata.NewHistoryDB(container.HistoryDB.Conn(), log)
	container.StatsCache = marketdata.NewStatsCache(container.CacheDB.Conn(), log)
	container.MarketData = marketdata.NewProvider(
		container.PriceHistory,
		container.StatsCache,
		cfg.Market.CacheTTL,
		log,
	)

	container.Sampler = sampler
	container.Simulator = simulation.NewSimulator(sampler, simulation.Options{
		Workers:        cfg.Simulation.Workers,
		MaxSimulations: cfg.Simulation.MaxSimulations,
		Mode:           mode,
	}, log)

	container.AnalysisService = analysis.NewService(mode, log)

	log.Info().
		Str("sampling_policy", string(sampler.Policy())).
		Str("validation_mode", string(mode)).
		Int("workers", cfg.Simulation.Workers).
		Msg("Services initialized")

	return nil
}
