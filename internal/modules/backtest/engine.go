// Package backtest replays a fixed allocation over historical prices and
// compares it with a benchmark compounding the risk-free rate.
package backtest

import (
	"maps"
	"math"
	"slices"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

// PortfolioValues reconstructs the value path of weights over series: each row
// is Σ weight × price. A ticker missing from a row, or with a non-finite
// price, contributes 0 to that row. Terms are summed in ticker order so the
// same inputs always give the same path.
func PortfolioValues(series domain.PriceSeries, weights domain.Weights) []float64 {
	tickers := slices.Sorted(maps.Keys(weights))
	values := make([]float64, len(series))
	for i, row := range series {
		var v float64
		for _, ticker := range tickers {
			price, ok := row.Prices[ticker]
			if !ok || math.IsNaN(price) || math.IsInf(price, 0) {
				continue
			}
			v += weights[ticker] * price
		}
		values[i] = v
	}
	return values
}

// Run backtests weights over a price series rebased to 1.0 at its first row.
//
// The benchmark starts at 1.0 and compounds by (1 + rf/100)^(1/252) once per
// subsequent row. Both curves are reported as cumulative percentages. Summary
// day statistics come from day-over-day changes of the raw value path and are
// zero when there are fewer than two rows.
func Run(series domain.PriceSeries, weights domain.Weights, riskFreeRatePct float64) domain.BacktestResult {
	values := PortfolioValues(series, weights)
	factor := formulas.DailyCompoundingFactor(riskFreeRatePct)

	points := make([]domain.BacktestPoint, len(series))
	benchmark := 1.0
	for i, row := range series {
		points[i] = domain.BacktestPoint{
			Date:      row.Date,
			Portfolio: (values[i] - 1) * 100,
			Benchmark: (benchmark - 1) * 100,
			Value:     values[i],
		}
		benchmark *= factor
	}

	return domain.BacktestResult{
		Series:  points,
		Summary: summarize(points, values),
	}
}

func summarize(points []domain.BacktestPoint, values []float64) domain.BacktestSummary {
	summary := domain.BacktestSummary{Days: len(points)}
	if len(points) == 0 {
		return summary
	}

	last := points[len(points)-1]
	summary.TotalReturn = last.Portfolio
	summary.TotalBenchmark = last.Benchmark
	summary.ExcessReturn = last.Portfolio - last.Benchmark

	returns := formulas.CalculateReturns(values)
	if len(returns) == 0 {
		return summary
	}

	best, worst := math.Inf(-1), math.Inf(1)
	positive := 0
	for _, r := range returns {
		best = math.Max(best, r)
		worst = math.Min(worst, r)
		if r > 0 {
			positive++
		}
	}

	summary.BestDay = best * 100
	summary.WorstDay = worst * 100
	summary.WinRate = float64(positive) / float64(len(returns)) * 100
	return summary
}
