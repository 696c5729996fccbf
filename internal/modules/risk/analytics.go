// Package risk derives tail-risk metrics from a reconstructed portfolio value path.
package risk

import (
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/backtest"
	"github.com/aristath/frontier/pkg/formulas"
)

const (
	// VaRTail is the tail probability of the reported 95% VaR and CVaR.
	VaRTail = 0.05
	// RollingWindow is the number of daily returns per rolling volatility point.
	RollingWindow = 21
)

// Analyze computes the risk profile of weights over a rebased price series.
//
// The value path is the one backtest.PortfolioValues builds. Daily returns use
// a zero return when the previous value is 0. The drawdown series covers every
// row, the first included.
func Analyze(series domain.PriceSeries, weights domain.Weights) domain.RiskProfile {
	values := backtest.PortfolioValues(series, weights)
	returns := formulas.CalculateReturns(values)
	drawdowns := formulas.DrawdownSeries(values)

	profile := domain.RiskProfile{
		VaR95:             formulas.HistoricalVaR(returns, VaRTail),
		CVaR95:            formulas.CalculateCVaR(returns, VaRTail),
		MaxDrawdown:       formulas.MaxDrawdown(values),
		Volatility:        formulas.AnnualizedVolatility(returns),
		DrawdownSeries:    make([]domain.DrawdownPoint, len(series)),
		RollingVolatility: []domain.DatedValue{},
		Days:              len(series),
	}

	for i, row := range series {
		profile.DrawdownSeries[i] = domain.DrawdownPoint{
			Date:        row.Date,
			DrawdownPct: drawdowns[i] * 100,
		}
	}

	// Window k covers returns[k:k+RollingWindow], the last of which ends on row k+RollingWindow.
	for k, vol := range formulas.RollingVolatility(returns, RollingWindow) {
		profile.RollingVolatility = append(profile.RollingVolatility, domain.DatedValue{
			Date:  series[k+RollingWindow].Date,
			Value: vol,
		})
	}

	return profile
}
