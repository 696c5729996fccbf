// Package handlers provides HTTP handlers for price history and market statistics.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

// Handler handles market data HTTP requests
type Handler struct {
	provider *marketdata.Provider
	log      zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(provider *marketdata.Provider, log zerolog.Logger) *Handler {
	return &Handler{
		provider: provider,
		log:      log.With().Str("handler", "marketdata").Logger(),
	}
}

// IngestRequest is the body of a price upload for one ticker.
type IngestRequest struct {
	Ticker string                  `json:"ticker"`
	Prices []marketdata.DailyPrice `json:"prices"`
}

// HandleIngestPrices handles POST /api/market/prices
func (h *Handler) HandleIngestPrices(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.provider.IngestPrices(r.Context(), req.Ticker, req.Prices); err != nil {
		if errors.Is(err, marketdata.ErrInvalidPrice) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("ticker", req.Ticker).Msg("Failed to store prices")
		http.Error(w, "Failed to store prices", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"ticker": req.Ticker,
			"stored": len(req.Prices),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetTickers handles GET /api/market/tickers
func (h *Handler) HandleGetTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.provider.Tickers(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tickers")
		http.Error(w, "Failed to list tickers", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"tickers": tickers,
			"count":   len(tickers),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// OptimizeRequest asks for the statistics of a ticker set.
type OptimizeRequest struct {
	Tickers []string `json:"tickers"`
	Period  string   `json:"period"`
}

// HandleOptimize handles POST /api/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	md, err := h.provider.Load(r.Context(), req.Tickers, req.Period)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			h.log.Debug().Err(err).Msg("Market data request abandoned by client")
		case errors.Is(err, marketdata.ErrInvalidPeriod),
			errors.Is(err, marketdata.ErrNoPriceData),
			errors.Is(err, marketdata.ErrInsufficientHistory),
			domain.IsValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.log.Error().Err(err).Strs("tickers", req.Tickers).Msg("Failed to load market data")
			http.Error(w, "Failed to load market data", http.StatusInternalServerError)
		}
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"tickers":           md.Tickers,
			"period":            md.Period,
			"mean_returns":      md.MeanReturns,
			"cov_matrix":        md.CovMatrix,
			"corr_matrix":       md.CorrMatrix,
			"last_prices":       md.LastPrices,
			"normalized_prices": md.NormalizedPrices,
			"raw_prices":        md.RawPrices,
			"audit":             marketdata.Audit(md),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
