package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// cancelCheckInterval is how many draws a worker scores between context checks.
const cancelCheckInterval = 256

var (
	// ErrTooManySimulations is returned when a request exceeds the configured cap.
	ErrTooManySimulations = errors.New("simulation count exceeds limit")
	// ErrInvalidCount is returned for a negative simulation count.
	ErrInvalidCount = errors.New("simulation count must not be negative")
)

// Options configures a Simulator.
type Options struct {
	Workers        int
	MaxSimulations int
	Mode           domain.ValidationMode
}

// Request is one simulation run over an upstream market snapshot.
type Request struct {
	// Tickers fixes the asset order. Empty means the sorted keys of MeanReturns.
	Tickers         []string                `json:"tickers,omitempty"`
	MeanReturns     domain.MeanReturns      `json:"mean_returns"`
	CovMatrix       domain.CovarianceMatrix `json:"cov_matrix"`
	Count           int                     `json:"count"`
	RiskFreeRatePct float64                 `json:"risk_free_rate"`
	// Seed makes a run reproducible. Nil picks a random seed, reported back.
	Seed *uint64 `json:"seed,omitempty"`
	// Mode overrides the simulator's validation mode when set.
	Mode domain.ValidationMode `json:"validation_mode,omitempty"`
}

// Result is a scored population in draw order.
type Result struct {
	RunID           string                  `json:"run_id"`
	Seed            uint64                  `json:"seed"`
	Policy          Policy                  `json:"policy"`
	Tickers         []string                `json:"tickers"`
	RiskFreeRatePct float64                 `json:"risk_free_rate"`
	Points          []domain.PortfolioPoint `json:"points"`
}

// Chunk is one slice of a streamed run, starting at draw Offset.
type Chunk struct {
	RunID  string                  `json:"run_id"`
	Offset int                     `json:"offset"`
	Points []domain.PortfolioPoint `json:"points"`
}

// StreamSummary describes a completed streamed run.
type StreamSummary struct {
	RunID      string                 `json:"run_id"`
	Seed       uint64                 `json:"seed"`
	Count      int                    `json:"count"`
	BestSharpe *domain.PortfolioPoint `json:"best_sharpe,omitempty"`
}

// Simulator drives a Sampler and a Scorer over many independent draws.
//
// Draw i always uses a PCG source seeded with (seed, i), so a run is fully
// determined by its seed and inputs whatever the number of workers.
type Simulator struct {
	sampler        Sampler
	workers        int
	maxSimulations int
	mode           domain.ValidationMode
	log            zerolog.Logger
}

// NewSimulator creates a new simulator.
func NewSimulator(sampler Sampler, opts Options, log zerolog.Logger) *Simulator {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.ValidationLenient
	}
	return &Simulator{
		sampler:        sampler,
		workers:        workers,
		maxSimulations: opts.MaxSimulations,
		mode:           mode,
		log:            log.With().Str("component", "simulation").Logger(),
	}
}

// Policy returns the sampling policy in use.
func (s *Simulator) Policy() Policy {
	return s.sampler.Policy()
}

// run is a validated request.
type run struct {
	id     string
	seed   uint64
	count  int
	scorer *Scorer
}

// Run scores req.Count random portfolios. A zero count yields an empty result.
// Cancelling ctx abandons the run and returns ctx.Err().
func (s *Simulator) Run(ctx context.Context, req Request) (*Result, error) {
	r, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:           r.id,
		Seed:            r.seed,
		Policy:          s.sampler.Policy(),
		RiskFreeRatePct: req.RiskFreeRatePct,
		Tickers:         []string{},
		Points:          make([]domain.PortfolioPoint, r.count),
	}
	if r.count == 0 {
		return result, nil
	}
	result.Tickers = r.scorer.Universe().Tickers()

	start := time.Now()
	if err := s.generate(ctx, r, 0, result.Points); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("run_id", r.id).
		Int("count", r.count).
		Int("assets", len(result.Tickers)).
		Dur("duration", time.Since(start)).
		Msg("Simulation completed")

	return result, nil
}

// RunStream scores the same draws Run would, chunk by chunk, calling emit
// after each chunk. An error from emit stops the run and is returned.
func (s *Simulator) RunStream(ctx context.Context, req Request, chunk int, emit func(Chunk) error) (*StreamSummary, error) {
	r, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if chunk <= 0 {
		chunk = r.count
	}

	summary := &StreamSummary{RunID: r.id, Seed: r.seed, Count: r.count}
	if r.count == 0 {
		return summary, nil
	}

	var best domain.PortfolioPoint
	found := false
	for offset := 0; offset < r.count; offset += chunk {
		points := make([]domain.PortfolioPoint, min(chunk, r.count-offset))
		if err := s.generate(ctx, r, offset, points); err != nil {
			return nil, err
		}
		if p, ok := MaxSharpe(points); ok && (!found || p.Sharpe > best.Sharpe) {
			best, found = p, true
		}
		if err := emit(Chunk{RunID: r.id, Offset: offset, Points: points}); err != nil {
			return nil, fmt.Errorf("emit chunk at %d: %w", offset, err)
		}
	}

	if found {
		summary.BestSharpe = &best
	}
	return summary, nil
}

// Score scores a caller-chosen allocation against req's snapshot. Count and
// Seed are ignored.
func (s *Simulator) Score(req Request, weights domain.Weights) (domain.PortfolioPoint, error) {
	mode := s.modeFor(req)
	if err := weights.Validate(mode); err != nil {
		return domain.PortfolioPoint{}, err
	}
	scorer, err := s.scorer(req, mode)
	if err != nil {
		return domain.PortfolioPoint{}, err
	}
	return scorer.ScoreWeights(weights), nil
}

func (s *Simulator) prepare(req Request) (*run, error) {
	if req.Count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, req.Count)
	}
	if s.maxSimulations > 0 && req.Count > s.maxSimulations {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySimulations, req.Count, s.maxSimulations)
	}

	r := &run{id: uuid.New().String(), count: req.Count}
	if req.Seed != nil {
		r.seed = *req.Seed
	} else {
		r.seed = rand.Uint64()
	}
	if r.count == 0 {
		return r, nil
	}

	scorer, err := s.scorer(req, s.modeFor(req))
	if err != nil {
		return nil, err
	}
	r.scorer = scorer
	return r, nil
}

func (s *Simulator) modeFor(req Request) domain.ValidationMode {
	if req.Mode != "" {
		return req.Mode
	}
	return s.mode
}

func (s *Simulator) scorer(req Request, mode domain.ValidationMode) (*Scorer, error) {
	var (
		universe domain.Universe
		err      error
	)
	if len(req.Tickers) > 0 {
		universe, err = domain.NewUniverse(req.Tickers)
	} else {
		universe, err = domain.UniverseFromMeanReturns(req.MeanReturns)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid universe: %w", err)
	}

	inputs, err := domain.NewMarketInputs(universe, req.MeanReturns, req.CovMatrix, mode)
	if err != nil {
		return nil, fmt.Errorf("invalid market inputs: %w", err)
	}
	return NewScorer(inputs, req.RiskFreeRatePct), nil
}

// generate fills dst with draws offset..offset+len(dst)-1. Each worker owns a
// contiguous block of dst and nothing else.
func (s *Simulator) generate(ctx context.Context, r *run, offset int, dst []domain.PortfolioPoint) error {
	n := r.scorer.Universe().Len()
	workers := min(s.workers, len(dst))
	block := (len(dst) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(dst); lo += block {
		hi := min(lo+block, len(dst))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				draw := offset + i
				w := s.sampler.Sample(n, rand.NewPCG(r.seed, uint64(draw)))
				dst[i] = r.scorer.Score(draw, w)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
