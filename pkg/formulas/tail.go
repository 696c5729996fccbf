package formulas

import (
	"math"
	"sort"
)

// HistoricalVaR returns the empirical quantile of returns at the given tail
// probability (0.05 for 95% VaR): the ascending-sorted value at index
// floor(n * tail). Losses come out negative. Empty input yields 0.
func HistoricalVaR(returns []float64, tail float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * tail))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// CalculateCVaR calculates Conditional Value at Risk: the mean of the worst
// ceil(n * tail) returns (at least one).
func CalculateCVaR(returns []float64, tail float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailCount := int(math.Ceil(float64(len(sorted)) * tail))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tailCount] {
		sum += r
	}
	return sum / float64(tailCount)
}
