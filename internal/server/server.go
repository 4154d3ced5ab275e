// Package server provides the HTTP server and routing for Covercall.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/config"
	"github.com/alevras/covercall/internal/database"
	portfoliohandlers "github.com/alevras/covercall/internal/modules/portfolio/handlers"
	ruleshandlers "github.com/alevras/covercall/internal/modules/rules/handlers"
	screenerhandlers "github.com/alevras/covercall/internal/modules/screener/handlers"
	settingshandlers "github.com/alevras/covercall/internal/modules/settings/handlers"
	simulatorhandlers "github.com/alevras/covercall/internal/modules/simulator/handlers"
)

// RouteRegistrar mounts a module's routes on the API router
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Cfg     *config.Config
	Port    int
	DevMode bool

	ScreenerDB  *database.DB
	RulesDB     *database.DB
	PortfolioDB *database.DB
	ConfigDB    *database.DB

	ScreenerHandlers  *screenerhandlers.Handler
	RulesHandlers     *ruleshandlers.Handler
	SimulatorHandlers *simulatorhandlers.Handler
	PortfolioHandlers *portfoliohandlers.Handler
	SettingsHandlers  *settingshandlers.Handler
	SystemHandlers    *SystemHandlers
}

// Server is the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates a new HTTP server with all module routes mounted
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !s.cfg.DevMode {
		s.router.Use(middleware.Compress(5))
	}

	s.router.Use(s.requestLogger)
}

// requestLogger logs each request with its status and latency
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		for _, registrar := range []RouteRegistrar{
			s.cfg.ScreenerHandlers,
			s.cfg.RulesHandlers,
			s.cfg.SimulatorHandlers,
			s.cfg.PortfolioHandlers,
			s.cfg.SettingsHandlers,
		} {
			if registrar != nil {
				registrar.RegisterRoutes(r)
			}
		}

		if s.cfg.SystemHandlers != nil {
			s.cfg.SystemHandlers.RegisterRoutes(r)
		}
	})
}

// handleHealth reports liveness plus per-database reachability
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	databases := map[string]*database.DB{
		"screener":  s.cfg.ScreenerDB,
		"rules":     s.cfg.RulesDB,
		"portfolio": s.cfg.PortfolioDB,
		"config":    s.cfg.ConfigDB,
	}

	status := "ok"
	checks := map[string]string{}
	for name, db := range databases {
		if db == nil {
			continue
		}
		if err := db.Conn().PingContext(r.Context()); err != nil {
			checks[name] = "unreachable"
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"databases": checks,
	}); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}
