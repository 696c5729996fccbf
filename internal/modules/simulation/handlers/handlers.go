// Package handlers provides HTTP handlers for portfolio simulation.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// Defaults are applied to request fields the client leaves out.
type Defaults struct {
	Count           int
	Buckets         int
	RiskFreeRatePct float64
	StreamChunk     int
	// OriginPatterns are the host patterns accepted for WebSocket upgrades.
	OriginPatterns []string
}

// Handler handles simulation HTTP requests
type Handler struct {
	simulator *simulation.Simulator
	defaults  Defaults
	log       zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(simulator *simulation.Simulator, defaults Defaults, log zerolog.Logger) *Handler {
	if defaults.Buckets <= 0 {
		defaults.Buckets = simulation.DefaultBuckets
	}
	if defaults.StreamChunk <= 0 {
		defaults.StreamChunk = 500
	}
	return &Handler{
		simulator: simulator,
		defaults:  defaults,
		log:       log.With().Str("handler", "simulation").Logger(),
	}
}

// RunRequest is the body of a simulation run.
type RunRequest struct {
	Tickers        []string                `json:"tickers,omitempty"`
	MeanReturns    domain.MeanReturns      `json:"mean_returns"`
	CovMatrix      domain.CovarianceMatrix `json:"cov_matrix"`
	Count          *int                    `json:"count,omitempty"`
	RiskFreeRate   *float64                `json:"risk_free_rate,omitempty"`
	Seed           *uint64                 `json:"seed,omitempty"`
	Buckets        *int                    `json:"buckets,omitempty"`
	ValidationMode string                  `json:"validation_mode,omitempty"`
}

func (h *Handler) toRequest(req RunRequest) (simulation.Request, error) {
	mode, err := parseMode(req.ValidationMode)
	if err != nil {
		return simulation.Request{}, err
	}

	out := simulation.Request{
		Tickers:         req.Tickers,
		MeanReturns:     req.MeanReturns,
		CovMatrix:       req.CovMatrix,
		Count:           h.defaults.Count,
		RiskFreeRatePct: h.defaults.RiskFreeRatePct,
		Seed:            req.Seed,
		Mode:            mode,
	}
	if req.Count != nil {
		out.Count = *req.Count
	}
	if req.RiskFreeRate != nil {
		out.RiskFreeRatePct = *req.RiskFreeRate
	}
	return out, nil
}

func (h *Handler) buckets(requested *int) int {
	if requested != nil && *requested > 0 {
		return *requested
	}
	return h.defaults.Buckets
}

// HandleRun handles POST /api/simulation/run
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.toRequest(body)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.simulator.Run(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"run":       result,
			"selection": simulation.Select(result.Points, h.buckets(body.Buckets)),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// FrontierRequest is the body of a frontier extraction over a known population.
type FrontierRequest struct {
	Points  []domain.PortfolioPoint `json:"points"`
	Buckets *int                    `json:"buckets,omitempty"`
}

// HandleFrontier handles POST /api/simulation/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	var body FrontierRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": simulation.Select(body.Points, h.buckets(body.Buckets)),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// ScoreRequest is the body of a single allocation score.
type ScoreRequest struct {
	RunRequest
	Weights domain.Weights `json:"weights"`
}

// HandleScore handles POST /api/simulation/score
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var body ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.toRequest(body.RunRequest)
	if err != nil {
		h.writeError(w, err)
		return
	}

	point, err := h.simulator.Score(req, body.Weights)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": point,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func parseMode(s string) (domain.ValidationMode, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseValidationMode(s)
}

func isClientError(err error) bool {
	return domain.IsValidationError(err) ||
		errors.Is(err, simulation.ErrTooManySimulations) ||
		errors.Is(err, simulation.ErrInvalidCount)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		h.log.Debug().Err(err).Msg("Simulation abandoned by client")
	case isClientError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Simulation failed")
		http.Error(w, "Simulation failed", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
