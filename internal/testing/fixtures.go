package testing

import (
	"math"
	"math/rand/v2"

	"github.com/aristath/frontier/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// ThreeAssetInputs returns annualized statistics for a small universe with one
// defensive, one balanced and one aggressive asset.
func ThreeAssetInputs() (domain.MeanReturns, domain.CovarianceMatrix) {
	mu := domain.MeanReturns{
		"BOND": 0.06,
		"BLUE": 0.11,
		"TECH": 0.18,
	}
	cov := domain.CovarianceMatrix{
		"BOND": {"BOND": 0.0025, "BLUE": 0.0010, "TECH": -0.0005},
		"BLUE": {"BOND": 0.0010, "BLUE": 0.0400, "TECH": 0.0300},
		"TECH": {"BOND": -0.0005, "BLUE": 0.0300, "TECH": 0.0900},
	}
	return mu, cov
}

// RandomWalkCloses returns deterministic geometric random walks, one per
// ticker, each starting at 100 and days long.
func RandomWalkCloses(days int, seed uint64, tickers ...string) map[string][]float64 {
	out := make(map[string][]float64, len(tickers))
	for i, ticker := range tickers {
		step := distuv.Normal{
			Mu:    0.0004,
			Sigma: 0.01 * float64(i+1),
			Src:   rand.NewPCG(seed, uint64(i)),
		}
		closes := make([]float64, days)
		price := 100.0
		for d := range closes {
			if d > 0 {
				price *= math.Exp(step.Rand())
			}
			closes[d] = price
		}
		out[ticker] = closes
	}
	return out
}
