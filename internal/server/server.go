// Package server provides the HTTP server and routing for Frontier.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/analysis"
	analysishandlers "github.com/aristath/frontier/internal/modules/analysis/handlers"
	"github.com/aristath/frontier/internal/modules/marketdata"
	marketdatahandlers "github.com/aristath/frontier/internal/modules/marketdata/handlers"
	"github.com/aristath/frontier/internal/modules/simulation"
	simulationhandlers "github.com/aristath/frontier/internal/modules/simulation/handlers"
	"github.com/aristath/frontier/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	HistoryDB *database.DB
	CacheDB   *database.DB
	Config    *config.Config
	Provider  *marketdata.Provider
	Simulator *simulation.Simulator
	Analysis  *analysis.Service
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	cancelBase     context.CancelFunc
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers
	simulation     *simulationhandlers.Handler
	analysis       *analysishandlers.Handler
	marketdata     *marketdatahandlers.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Config

	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    c,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Scheduler,
			cfg.HistoryDB,
			cfg.CacheDB,
		),
		simulation: simulationhandlers.NewHandler(cfg.Simulator, simulationhandlers.Defaults{
			Count:           c.Simulation.Count,
			Buckets:         c.Simulation.Buckets,
			RiskFreeRatePct: c.Simulation.RiskFreeRatePct,
			StreamChunk:     c.Simulation.StreamChunk,
			OriginPatterns:  originPatterns(c.CORSOrigins, c.DevMode),
		}, cfg.Log),
		analysis:   analysishandlers.NewHandler(cfg.Analysis, c.Simulation.RiskFreeRatePct, cfg.Log),
		marketdata: marketdatahandlers.NewHandler(cfg.Provider, cfg.Log),
	}

	s.setupMiddleware(c.DevMode)
	s.setupRoutes()

	// Hijacked WebSocket connections outlive http.Server.Shutdown, so their
	// request contexts hang off a base context that Shutdown cancels.
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancelBase = cancel

	// No read or write deadline: simulation streams hold the connection for
	// as long as the run takes.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	origins := s.cfg.CORSOrigins
	if devMode {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: !devMode,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
			r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
		})

		s.marketdata.RegisterRoutes(r)
		s.simulation.RegisterRoutes(r)
		s.analysis.RegisterRoutes(r)
	})
}

// Router exposes the configured handler tree.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown waits for in-flight requests, then cancels open simulation streams
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	defer s.cancelBase()
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// originPatterns turns CORS origins into the host patterns the WebSocket
// upgrade checks against the Origin header.
func originPatterns(origins []string, devMode bool) []string {
	if devMode {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
