package analysis

import (
	"context"
	"testing"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/backtest"
	"github.com/aristath/frontier/internal/modules/risk"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	return Request{
		Prices: domain.PriceSeries{
			{Date: "2024-01-02", Prices: map[string]float64{"A": 1.0, "B": 1.0}},
			{Date: "2024-01-03", Prices: map[string]float64{"A": 1.2, "B": 0.9}},
			{Date: "2024-01-04", Prices: map[string]float64{"A": 0.9, "B": 1.1}},
			{Date: "2024-01-05", Prices: map[string]float64{"A": 1.1, "B": 1.0}},
		},
		Weights:         domain.Weights{"A": 0.6, "B": 0.4},
		RiskFreeRatePct: 10.75,
	}
}

func TestService_AnalyzeMatchesEngines(t *testing.T) {
	svc := NewService(domain.ValidationLenient, zerolog.Nop())
	req := testRequest()

	report, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, backtest.Run(req.Prices, req.Weights, req.RiskFreeRatePct), report.Backtest)
	assert.Equal(t, risk.Analyze(req.Prices, req.Weights), report.Risk)
}

func TestService_BacktestAndRisk(t *testing.T) {
	svc := NewService("", zerolog.Nop())
	req := testRequest()

	bt, err := svc.Backtest(req)
	require.NoError(t, err)
	assert.Len(t, bt.Series, 4)

	profile, err := svc.Risk(req)
	require.NoError(t, err)
	assert.Len(t, profile.DrawdownSeries, 4)
	assert.LessOrEqual(t, profile.MaxDrawdown, 0.0)
}

func TestService_StrictValidation(t *testing.T) {
	req := testRequest()
	delete(req.Prices[2].Prices, "B")

	lenient := NewService(domain.ValidationLenient, zerolog.Nop())
	_, err := lenient.Analyze(context.Background(), req)
	assert.NoError(t, err)

	strict := NewService(domain.ValidationStrict, zerolog.Nop())
	_, err = strict.Analyze(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrMissingPrice)

	req.Mode = domain.ValidationLenient
	_, err = strict.Backtest(req)
	assert.NoError(t, err, "request mode overrides the service default")

	req = testRequest()
	req.Weights = domain.Weights{"A": 0.6, "B": 0.6}
	_, err = strict.Risk(req)
	assert.ErrorIs(t, err, domain.ErrInvalidWeights)
}

func TestService_AnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService("", zerolog.Nop()).Analyze(ctx, testRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_EmptySeries(t *testing.T) {
	report, err := NewService("", zerolog.Nop()).Analyze(context.Background(), Request{Weights: domain.Weights{"A": 1}})
	require.NoError(t, err)
	assert.Empty(t, report.Backtest.Series)
	assert.Empty(t, report.Risk.DrawdownSeries)
}
