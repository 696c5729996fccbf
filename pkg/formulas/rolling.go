package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RollingVolatility returns the annualized population standard deviation of
// returns over a sliding window. The output has len(returns)-window+1 entries,
// the first one covering returns[0:window]. Too little data yields nil.
func RollingVolatility(returns []float64, window int) []float64 {
	if window < 2 || len(returns) < window {
		return nil
	}

	std := talib.StdDev(returns, window, 1)
	if len(std) < len(returns) {
		return nil
	}

	scale := math.Sqrt(TradingDaysPerYear)
	out := make([]float64, 0, len(returns)-window+1)
	for _, s := range std[window-1:] {
		if math.IsNaN(s) || s < 0 {
			s = 0
		}
		out = append(out, s*scale)
	}
	return out
}
