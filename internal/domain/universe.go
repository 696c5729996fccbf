// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance is the largest |cov(a,b) - cov(b,a)| accepted in strict mode.
const symmetryTolerance = 1e-9

// MeanReturns maps ticker to expected periodic return, as delivered upstream.
type MeanReturns map[string]float64

// CovarianceMatrix maps ticker to ticker to covariance, as delivered upstream.
type CovarianceMatrix map[string]map[string]float64

// At returns cov(a, b), or 0 when the cell is absent.
func (c CovarianceMatrix) At(a, b string) float64 {
	v, _ := c.lookup(a, b)
	return v
}

func (c CovarianceMatrix) lookup(a, b string) (float64, bool) {
	row, ok := c[a]
	if !ok {
		return 0, false
	}
	v, ok := row[b]
	return v, ok
}

// Universe is the ordered set of tickers that fixes the index of every vector
// and matrix in a computation.
type Universe struct {
	tickers []string
	index   map[string]int
}

// NewUniverse validates and freezes a ticker order.
func NewUniverse(tickers []string) (Universe, error) {
	if len(tickers) == 0 {
		return Universe{}, ErrEmptyUniverse
	}

	u := Universe{
		tickers: make([]string, len(tickers)),
		index:   make(map[string]int, len(tickers)),
	}
	for i, t := range tickers {
		if strings.TrimSpace(t) == "" {
			return Universe{}, fmt.Errorf("%w at position %d", ErrBlankTicker, i)
		}
		if _, dup := u.index[t]; dup {
			return Universe{}, fmt.Errorf("%w: %s", ErrDuplicateTicker, t)
		}
		u.tickers[i] = t
		u.index[t] = i
	}
	return u, nil
}

// UniverseFromMeanReturns builds a universe from the keys of mu in lexical order.
func UniverseFromMeanReturns(mu MeanReturns) (Universe, error) {
	tickers := make([]string, 0, len(mu))
	for t := range mu {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return NewUniverse(tickers)
}

// Len returns the number of assets.
func (u Universe) Len() int { return len(u.tickers) }

// Tickers returns a copy of the ticker order.
func (u Universe) Tickers() []string {
	out := make([]string, len(u.tickers))
	copy(out, u.tickers)
	return out
}

// Ticker returns the ticker at position i.
func (u Universe) Ticker(i int) string { return u.tickers[i] }

// Index returns the position of a ticker.
func (u Universe) Index(ticker string) (int, bool) {
	i, ok := u.index[ticker]
	return i, ok
}

// MarketInputs is the typed, immutable snapshot the scorer works on: mean
// returns and covariance laid out in universe order.
type MarketInputs struct {
	Universe Universe
	Mean     []float64
	Cov      *mat.SymDense
}

// NewMarketInputs lays mu and cov out over u.
//
// In lenient mode absent entries are 0 and each off-diagonal pair is replaced by
// its average, which leaves wᵀΣw equal to the double sum over the raw cells.
// Strict mode rejects absent entries, asymmetry and non-finite values.
func NewMarketInputs(u Universe, mu MeanReturns, cov CovarianceMatrix, mode ValidationMode) (*MarketInputs, error) {
	n := u.Len()
	if n == 0 {
		return nil, ErrEmptyUniverse
	}

	mean := make([]float64, n)
	for i, t := range u.tickers {
		v, ok := mu[t]
		if mode.Strict() {
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingMeanReturn, t)
			}
			if !isFinite(v) {
				return nil, fmt.Errorf("%w: mean return of %s", ErrNonFiniteInput, t)
			}
		}
		mean[i] = v
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a, b := u.tickers[i], u.tickers[j]
			ab, okAB := cov.lookup(a, b)
			ba, okBA := cov.lookup(b, a)

			if mode.Strict() {
				if !okAB || !okBA {
					return nil, fmt.Errorf("%w: (%s, %s)", ErrMissingCovariance, a, b)
				}
				if !isFinite(ab) || !isFinite(ba) {
					return nil, fmt.Errorf("%w: covariance (%s, %s)", ErrNonFiniteInput, a, b)
				}
				if math.Abs(ab-ba) > symmetryTolerance {
					return nil, fmt.Errorf("%w: (%s, %s)", ErrAsymmetricCovariance, a, b)
				}
			}

			sym.SetSym(i, j, (ab+ba)/2)
		}
	}

	return &MarketInputs{Universe: u, Mean: mean, Cov: sym}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
