package simulation

import (
	"math"

	"github.com/aristath/frontier/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Scorer turns weight vectors into PortfolioPoints against one immutable
// market snapshot. It is safe for concurrent use.
type Scorer struct {
	inputs *domain.MarketInputs
	rf     float64
}

// NewScorer binds a scorer to inputs and an annual risk-free rate in percent.
func NewScorer(inputs *domain.MarketInputs, riskFreeRatePct float64) *Scorer {
	return &Scorer{
		inputs: inputs,
		rf:     riskFreeRatePct / 100,
	}
}

// Universe returns the ticker order the scorer expects vectors in.
func (s *Scorer) Universe() domain.Universe {
	return s.inputs.Universe
}

// Score computes return, volatility and Sharpe of w, laid out in universe order.
func (s *Scorer) Score(draw int, w []float64) domain.PortfolioPoint {
	ret := floats.Dot(w, s.inputs.Mean)

	vec := mat.NewVecDense(len(w), w)
	variance := mat.Inner(vec, s.inputs.Cov, vec)
	if math.IsNaN(variance) || math.IsInf(variance, 0) || variance < 0 {
		variance = 0
	}
	vol := math.Sqrt(variance)

	var sharpe float64
	if vol > 0 {
		sharpe = (ret - s.rf) / vol
	}
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		sharpe = 0
	}

	return domain.PortfolioPoint{
		Draw:       draw,
		Weights:    domain.WeightsFromVector(s.inputs.Universe, w),
		Return:     ret,
		Volatility: vol,
		Sharpe:     sharpe,
	}
}

// ScoreWeights scores a ticker-keyed allocation. Tickers outside the universe
// are ignored.
func (s *Scorer) ScoreWeights(w domain.Weights) domain.PortfolioPoint {
	return s.Score(0, w.Vector(s.inputs.Universe))
}
