package domain

import (
	"fmt"
	"math"
)

// weightTolerance bounds |Σw - 1| for a caller-supplied allocation in strict mode.
const weightTolerance = 1e-6

// Weights maps ticker to allocated fraction of capital.
type Weights map[string]float64

// Sum returns the total allocation.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Vector lays the weights out in universe order; tickers outside u are ignored
// and tickers absent from w get 0.
func (w Weights) Vector(u Universe) []float64 {
	out := make([]float64, u.Len())
	for i, t := range u.tickers {
		out[i] = w[t]
	}
	return out
}

// Validate checks a caller-supplied allocation. Lenient mode accepts anything;
// strict mode requires finite non-negative weights summing to 1.
func (w Weights) Validate(mode ValidationMode) error {
	if !mode.Strict() {
		return nil
	}
	for t, v := range w {
		if !isFinite(v) {
			return fmt.Errorf("%w: weight of %s", ErrNonFiniteInput, t)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s is %g", ErrInvalidWeights, t, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: sum is %g", ErrInvalidWeights, sum)
	}
	return nil
}

// WeightsFromVector maps a universe-ordered vector back to tickers.
func WeightsFromVector(u Universe, v []float64) Weights {
	w := make(Weights, len(v))
	for i, x := range v {
		w[u.tickers[i]] = x
	}
	return w
}

// PortfolioPoint is one scored allocation. Draw is the generation index and is
// the tie-break key for every selection over a population.
type PortfolioPoint struct {
	Draw       int     `json:"draw"`
	Weights    Weights `json:"weights"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
}

// PopulationStats summarizes a simulated population.
type PopulationStats struct {
	Count         int     `json:"count"`
	AvgReturn     float64 `json:"avg_return"`
	AvgVolatility float64 `json:"avg_volatility"`
	AvgSharpe     float64 `json:"avg_sharpe"`
	MinReturn     float64 `json:"min_return"`
	MaxReturn     float64 `json:"max_return"`
	MinVolatility float64 `json:"min_volatility"`
	MaxVolatility float64 `json:"max_volatility"`
}
