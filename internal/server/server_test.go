package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/aristath/frontier/internal/scheduler"
	testingpkg "github.com/aristath/frontier/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:  t.TempDir(),
		Port:     8001,
		LogLevel: "info",
		Simulation: config.SimulationConfig{
			Count:           100,
			MaxSimulations:  1000,
			Buckets:         5,
			RiskFreeRatePct: 10.75,
			SamplingPolicy:  "uniform",
			ValidationMode:  "lenient",
			Workers:         2,
			StreamChunk:     50,
		},
		Market: config.MarketConfig{
			CacheTTL:        time.Minute,
			RetentionDays:   3650,
			CleanupSchedule: "0 0 3 * * *",
		},
		CORSOrigins: []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T, jobs ...scheduler.Job) *Server {
	t.Helper()
	cfg := testConfig(t)
	log := zerolog.Nop()

	historyDB := testingpkg.NewTestDB(t, "history")
	cacheDB := testingpkg.NewTestDB(t, "cache")

	provider := marketdata.NewProvider(
		marketdata.NewHistoryDB(historyDB.Conn(), log),
		marketdata.NewStatsCache(cacheDB.Conn(), log),
		cfg.Market.CacheTTL,
		log,
	)
	sim := simulation.NewSimulator(simulation.UniformSampler{}, simulation.Options{
		Workers:        cfg.Simulation.Workers,
		MaxSimulations: cfg.Simulation.MaxSimulations,
	}, log)

	sched := scheduler.New(log)
	for _, job := range jobs {
		require.NoError(t, sched.AddJob("@every 1h", job))
	}

	return New(Config{
		Log:       log,
		HistoryDB: historyDB,
		CacheDB:   cacheDB,
		Config:    cfg,
		Provider:  provider,
		Simulator: sim,
		Analysis:  analysis.NewService(domain.ValidationLenient, log),
		Scheduler: sched,
	})
}

func request(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := request(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t)

	rec := request(t, s, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Positive(t, status.Goroutines)
	assert.Positive(t, status.NumCPU)
	assert.GreaterOrEqual(t, status.RAMPercent, 0.0)
}

func TestDatabaseStats(t *testing.T) {
	s := newTestServer(t)

	rec := request(t, s, http.MethodGet, "/api/system/database/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats.Databases, 2)
	assert.Equal(t, "history", stats.Databases[0].Name)
	assert.Equal(t, "cache", stats.Databases[1].Profile)
	assert.Positive(t, stats.Databases[0].Pages)
}

func TestTriggerJob(t *testing.T) {
	ok := &stubJob{name: "history_cleanup"}
	failing := &stubJob{name: "market_cache_eviction", err: errors.New("locked")}
	s := newTestServer(t, ok, failing)

	rec := request(t, s, http.MethodPost, "/api/system/jobs/history_cleanup", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ok.runs)

	rec = request(t, s, http.MethodPost, "/api/system/jobs/market_cache_eviction", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = request(t, s, http.MethodPost, "/api/system/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/simulation/run", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/simulation/run", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// TestPipeline ingests prices, derives statistics and feeds them to the
// simulation and analysis endpoints the way a client would.
func TestPipeline(t *testing.T) {
	s := newTestServer(t)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for ticker, closes := range testingpkg.RandomWalkCloses(40, 1, "AAA", "BBB") {
		prices := make([]marketdata.DailyPrice, len(closes))
		for i, c := range closes {
			prices[i] = marketdata.DailyPrice{Date: start.AddDate(0, 0, i).Format(marketdata.DateLayout), Close: c}
		}
		body, err := json.Marshal(map[string]interface{}{"ticker": ticker, "prices": prices})
		require.NoError(t, err)

		rec := request(t, s, http.MethodPost, "/api/market/prices", string(body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := request(t, s, http.MethodPost, "/api/optimize", `{"tickers": ["AAA", "BBB"], "period": "max"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats struct {
		Data struct {
			MeanReturns      map[string]float64            `json:"mean_returns"`
			CovMatrix        map[string]map[string]float64 `json:"cov_matrix"`
			NormalizedPrices json.RawMessage               `json:"normalized_prices"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

	runBody, err := json.Marshal(map[string]interface{}{
		"mean_returns": stats.Data.MeanReturns,
		"cov_matrix":   stats.Data.CovMatrix,
		"count":        300,
		"seed":         7,
	})
	require.NoError(t, err)

	rec = request(t, s, http.MethodPost, "/api/simulation/run", string(runBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var run struct {
		Data struct {
			Run       simulation.Result    `json:"run"`
			Selection simulation.Selection `json:"selection"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Len(t, run.Data.Run.Points, 300)
	require.NotNil(t, run.Data.Selection.MaxSharpe)

	analysisBody, err := json.Marshal(map[string]interface{}{
		"normalized_prices": stats.Data.NormalizedPrices,
		"weights":           run.Data.Selection.MaxSharpe.Weights,
	})
	require.NoError(t, err)

	rec = request(t, s, http.MethodPost, "/api/analysis/", string(analysisBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Data analysis.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Data.Backtest.Series, 40)
	assert.Equal(t, 40, report.Data.Risk.Days)
	assert.Len(t, report.Data.Risk.RollingVolatility, 40-21)
}

func TestOriginPatterns(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		dev     bool
		want    []string
	}{
		{"dev mode", []string{"http://localhost:3000"}, true, []string{"*"}},
		{"strips scheme", []string{"http://localhost:3000", "https://app.example.com"}, false, []string{"localhost:3000", "app.example.com"}},
		{"wildcard", []string{"https://a.example", "*"}, false, []string{"*"}},
		{"bare host", []string{"app.example.com", " "}, false, []string{"app.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originPatterns(tt.origins, tt.dev))
		})
	}
}

func TestSimulationScoreStrict(t *testing.T) {
	s := newTestServer(t)
	mu, cov := testingpkg.ThreeAssetInputs()

	body, err := json.Marshal(map[string]interface{}{
		"mean_returns":    mu,
		"cov_matrix":      cov,
		"validation_mode": "strict",
		"weights":         map[string]float64{"BOND": 0.5, "BLUE": 0.3, "TECH": 0.2},
	})
	require.NoError(t, err)

	rec := request(t, s, http.MethodPost, "/api/simulation/score", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body, err = json.Marshal(map[string]interface{}{
		"mean_returns":    mu,
		"cov_matrix":      cov,
		"validation_mode": "strict",
		"weights":         map[string]float64{"BOND": 0.9, "BLUE": 0.3},
	})
	require.NoError(t, err)

	rec = request(t, s, http.MethodPost, "/api/simulation/score", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
