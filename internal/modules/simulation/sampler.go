// Package simulation provides Monte Carlo sampling and mean-variance scoring of
// random portfolios, and reducers over the resulting population.
package simulation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrUnknownSamplingPolicy is returned for a policy name NewSampler does not know.
var ErrUnknownSamplingPolicy = errors.New("unknown sampling policy")

// Policy names a weight sampling scheme.
type Policy string

const (
	// PolicyUniform normalizes i.i.d. Uniform(0,1) draws. The result is biased
	// toward balanced allocations and is not uniform over the simplex.
	PolicyUniform Policy = "uniform"
	// PolicyDirichlet normalizes i.i.d. Exponential(1) draws, which is
	// Dirichlet(1,...,1) and uniform over the simplex.
	PolicyDirichlet Policy = "dirichlet"
)

// Sampler draws a weight vector over the n-asset simplex: every entry is
// non-negative and the entries sum to 1.
type Sampler interface {
	Sample(n int, src rand.Source) []float64
	Policy() Policy
}

// NewSampler returns the sampler for a policy name. Empty means uniform.
func NewSampler(policy string) (Sampler, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(policy))) {
	case "", PolicyUniform:
		return UniformSampler{}, nil
	case PolicyDirichlet:
		return DirichletSampler{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSamplingPolicy, policy)
	}
}

// UniformSampler normalizes independent uniform draws.
type UniformSampler struct{}

// Sample implements Sampler.
func (UniformSampler) Sample(n int, src rand.Source) []float64 {
	d := distuv.Uniform{Min: 0, Max: 1, Src: src}
	w := make([]float64, n)
	for i := range w {
		w[i] = d.Rand()
	}
	return normalize(w)
}

// Policy implements Sampler.
func (UniformSampler) Policy() Policy { return PolicyUniform }

// DirichletSampler normalizes independent unit exponential draws.
type DirichletSampler struct{}

// Sample implements Sampler.
func (DirichletSampler) Sample(n int, src rand.Source) []float64 {
	d := distuv.Exponential{Rate: 1, Src: src}
	w := make([]float64, n)
	for i := range w {
		w[i] = d.Rand()
	}
	return normalize(w)
}

// Policy implements Sampler.
func (DirichletSampler) Policy() Policy { return PolicyDirichlet }

// normalize scales w in place to sum to 1. An all-zero draw becomes equal weights.
func normalize(w []float64) []float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		eq := 1 / float64(len(w))
		for i := range w {
			w[i] = eq
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
