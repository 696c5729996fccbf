// Package handlers provides HTTP handlers for backtest and risk analysis.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/rs/zerolog"
)

// Handler handles analysis HTTP requests
type Handler struct {
	service         *analysis.Service
	riskFreeRatePct float64
	log             zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *analysis.Service, riskFreeRatePct float64, log zerolog.Logger) *Handler {
	return &Handler{
		service:         service,
		riskFreeRatePct: riskFreeRatePct,
		log:             log.With().Str("handler", "analysis").Logger(),
	}
}

// AnalysisRequest is the body shared by all analysis endpoints.
type AnalysisRequest struct {
	Prices         domain.PriceSeries `json:"normalized_prices"`
	Weights        domain.Weights     `json:"weights"`
	RiskFreeRate   *float64           `json:"risk_free_rate,omitempty"`
	ValidationMode string             `json:"validation_mode,omitempty"`
}

func (h *Handler) decode(r *http.Request) (analysis.Request, error) {
	var body AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return analysis.Request{}, errBadBody
	}

	req := analysis.Request{
		Prices:          body.Prices,
		Weights:         body.Weights,
		RiskFreeRatePct: h.riskFreeRatePct,
	}
	if body.RiskFreeRate != nil {
		req.RiskFreeRatePct = *body.RiskFreeRate
	}
	if body.ValidationMode != "" {
		mode, err := domain.ParseValidationMode(body.ValidationMode)
		if err != nil {
			return analysis.Request{}, err
		}
		req.Mode = mode
	}
	return req, nil
}

var errBadBody = errors.New("invalid request body")

// HandleBacktest handles POST /api/analysis/backtest
func (h *Handler) HandleBacktest(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Backtest(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, result)
}

// HandleRisk handles POST /api/analysis/risk
func (h *Handler) HandleRisk(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	profile, err := h.service.Risk(req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, profile)
}

// HandleAnalyze handles POST /api/analysis
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, report)
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		h.log.Debug().Err(err).Msg("Analysis abandoned by client")
	case errors.Is(err, errBadBody):
		http.Error(w, "Invalid request body", http.StatusBadRequest)
	case domain.IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Analysis failed")
		http.Error(w, "Analysis failed", http.StatusInternalServerError)
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
