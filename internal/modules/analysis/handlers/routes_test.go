package handlers

import (
	"testing"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/analysis"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	handler := NewHandler(analysis.NewService(domain.ValidationLenient, zerolog.Nop()), 10.75, zerolog.Nop())
	router := chi.NewRouter()

	// Should not panic
	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")

	for _, path := range []string{"/analysis/", "/analysis/backtest", "/analysis/risk"} {
		assert.True(t, router.Match(chi.NewRouteContext(), "POST", path), path)
	}
}
