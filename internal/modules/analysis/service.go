// Package analysis runs the historical backtest and risk analytics of a
// selected allocation over one price snapshot.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/backtest"
	"github.com/aristath/frontier/internal/modules/risk"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Request is one analysis over normalized prices.
type Request struct {
	Prices          domain.PriceSeries    `json:"normalized_prices"`
	Weights         domain.Weights        `json:"weights"`
	RiskFreeRatePct float64               `json:"risk_free_rate"`
	Mode            domain.ValidationMode `json:"validation_mode,omitempty"`
}

// Report holds both results, computed from the same snapshot.
type Report struct {
	Backtest domain.BacktestResult `json:"backtest"`
	Risk     domain.RiskProfile    `json:"risk"`
}

// Service validates analysis requests and runs the engines.
type Service struct {
	mode domain.ValidationMode
	log  zerolog.Logger
}

// NewService creates a new analysis service.
func NewService(mode domain.ValidationMode, log zerolog.Logger) *Service {
	if mode == "" {
		mode = domain.ValidationLenient
	}
	return &Service{
		mode: mode,
		log:  log.With().Str("component", "analysis").Logger(),
	}
}

func (s *Service) validate(req Request) error {
	mode := req.Mode
	if mode == "" {
		mode = s.mode
	}
	if err := req.Weights.Validate(mode); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}
	if err := req.Prices.Validate(req.Weights, mode); err != nil {
		return fmt.Errorf("invalid price series: %w", err)
	}
	return nil
}

// Backtest runs only the backtest.
func (s *Service) Backtest(req Request) (domain.BacktestResult, error) {
	if err := s.validate(req); err != nil {
		return domain.BacktestResult{}, err
	}
	return backtest.Run(req.Prices, req.Weights, req.RiskFreeRatePct), nil
}

// Risk runs only the risk analytics.
func (s *Service) Risk(req Request) (domain.RiskProfile, error) {
	if err := s.validate(req); err != nil {
		return domain.RiskProfile{}, err
	}
	return risk.Analyze(req.Prices, req.Weights), nil
}

// Analyze runs the backtest and the risk analytics concurrently. Neither
// mutates the request, so both read the same snapshot.
func (s *Service) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Backtest = backtest.Run(req.Prices, req.Weights, req.RiskFreeRatePct)
		return ctx.Err()
	})
	g.Go(func() error {
		report.Risk = risk.Analyze(req.Prices, req.Weights)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("rows", len(req.Prices)).
		Int("assets", len(req.Weights)).
		Dur("duration", time.Since(start)).
		Msg("Analysis completed")

	return report, nil
}
