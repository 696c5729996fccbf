// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/aristath/frontier/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory for history.db and cache.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Simulation SimulationConfig
	Market     MarketConfig

	CORSOrigins []string
}

// SimulationConfig holds engine defaults and limits.
type SimulationConfig struct {
	Count           int
	MaxSimulations  int
	Buckets         int
	RiskFreeRatePct float64
	SamplingPolicy  string
	ValidationMode  string
	Workers         int
	StreamChunk     int
}

// MarketConfig holds price history and statistics cache settings.
type MarketConfig struct {
	CacheTTL        time.Duration
	RetentionDays   int
	CleanupSchedule string
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("FRONTIER_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  dataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Simulation: SimulationConfig{
			Count:           getEnvAsInt("SIMULATION_COUNT", 2000),
			MaxSimulations:  getEnvAsInt("MAX_SIMULATIONS", 100000),
			Buckets:         getEnvAsInt("FRONTIER_BUCKETS", simulation.DefaultBuckets),
			RiskFreeRatePct: getEnvAsFloat("RISK_FREE_RATE", 10.75),
			SamplingPolicy:  getEnv("SAMPLING_POLICY", string(simulation.PolicyUniform)),
			ValidationMode:  getEnv("VALIDATION_MODE", string(domain.ValidationLenient)),
			Workers:         getEnvAsInt("SIMULATION_WORKERS", defaultWorkers()),
			StreamChunk:     getEnvAsInt("STREAM_CHUNK_SIZE", 500),
		},
		Market: MarketConfig{
			CacheTTL:        getEnvAsDuration("MARKET_CACHE_TTL", 15*time.Minute),
			RetentionDays:   getEnvAsInt("HISTORY_RETENTION_DAYS", 3650),
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
		},
		CORSOrigins: getEnvAsList("CORS_ORIGINS", defaultCORSOrigins),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that limits are usable and that named policies exist
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}

	s := c.Simulation
	if s.Count <= 0 {
		return fmt.Errorf("SIMULATION_COUNT must be positive, got %d", s.Count)
	}
	if s.MaxSimulations < s.Count {
		return fmt.Errorf("MAX_SIMULATIONS (%d) must be at least SIMULATION_COUNT (%d)", s.MaxSimulations, s.Count)
	}
	if s.Buckets <= 0 {
		return fmt.Errorf("FRONTIER_BUCKETS must be positive, got %d", s.Buckets)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("SIMULATION_WORKERS must be positive, got %d", s.Workers)
	}
	if s.StreamChunk <= 0 {
		return fmt.Errorf("STREAM_CHUNK_SIZE must be positive, got %d", s.StreamChunk)
	}
	if _, err := simulation.NewSampler(s.SamplingPolicy); err != nil {
		return fmt.Errorf("SAMPLING_POLICY: %w", err)
	}
	if _, err := domain.ParseValidationMode(s.ValidationMode); err != nil {
		return fmt.Errorf("VALIDATION_MODE: %w", err)
	}

	m := c.Market
	if m.RetentionDays <= 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must be positive, got %d", m.RetentionDays)
	}
	if m.CacheTTL < 0 {
		return fmt.Errorf("MARKET_CACHE_TTL must not be negative, got %s", m.CacheTTL)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(m.CleanupSchedule); err != nil {
		return fmt.Errorf("CLEANUP_SCHEDULE: %w", err)
	}

	return nil
}

// HistoryDBPath is the price history database file.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// CacheDBPath is the statistics cache database file.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// defaultWorkers prefers the logical CPU count reported by the host and falls
// back to the Go runtime's view.
func defaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if values := utils.ParseCSV(os.Getenv(key)); len(values) > 0 {
		return values
	}
	return append([]string(nil), defaultValue...)
}
