package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"workguard360/api/handlers"
	"workguard360/config"
	"workguard360/core/alerts"
	"workguard360/core/auth"
	"workguard360/core/fanout"
	"workguard360/core/rbac"
)

// Server owns the HTTP surface: router, middleware and graceful shutdown.
type Server struct {
	cfg      *config.AppConfig
	logger   zerolog.Logger
	resolver *auth.Resolver
	alerts   *alerts.Service
	engine   *rbac.Engine
	hub      *fanout.Hub

	httpServer *http.Server
}

func NewServer(cfg *config.AppConfig, logger zerolog.Logger, resolver *auth.Resolver, svc *alerts.Service, engine *rbac.Engine, hub *fanout.Hub) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		alerts:   svc,
		engine:   engine,
		hub:      hub,
	}
}

// Handler builds the router. Exposed separately from Run so tests can mount
// it on httptest servers.
func (s *Server) Handler() http.Handler {
	alertsHandler := handlers.NewAlertsHandler(s.cfg, s.alerts, s.logger)
	streamHandler := handlers.NewStreamHandler(s.hub, s.engine, s.logger)
	healthHandler := handlers.NewHealthHandler(s.hub)

	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/api/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/alerts", func(r chi.Router) {
		r.Use(s.withPrincipal)
		r.Get("/", alertsHandler.List)
		r.Post("/", alertsHandler.Create)
		r.Get("/stream", streamHandler.Stream)
		r.Get("/{id}", alertsHandler.Get)
		r.Put("/{id}/acknowledge", alertsHandler.Acknowledge)
		r.Put("/{id}/resolve", alertsHandler.Resolve)
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
