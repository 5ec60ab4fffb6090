// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the store, picks the session
// store, builds services and handlers, and registers routes. Nothing else in
// the module knows which concrete store or session store is in use.
//
//	config → store (sqlite | postgres) → services → TrackerHandler → routes
//	       → session store (global | cookie) ↗
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/travel-tracker/internal/config"
	"github.com/sakif/travel-tracker/internal/handler"
	"github.com/sakif/travel-tracker/internal/middleware"
	"github.com/sakif/travel-tracker/internal/repository"
	postgresRepo "github.com/sakif/travel-tracker/internal/repository/postgres"
	sqliteRepo "github.com/sakif/travel-tracker/internal/repository/sqlite"
	"github.com/sakif/travel-tracker/internal/service"
	"github.com/sakif/travel-tracker/internal/session"
	"github.com/sakif/travel-tracker/web"
)

const (
	shutdownTimeout = 30 * time.Second
	healthTimeout   = 2 * time.Second
)

// Server owns the router and the store. The store is closed when Start
// returns, or by Close when Start is never called.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	sessions session.Store
	registry *prometheus.Registry
}

// New opens the store and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	sessions, err := newSessionStore(cfg.Session)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		sessions: sessions,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return postgresRepo.New(ctx, cfg.PostgresDSN())

	case config.DriverSQLite:
		if cfg.Database.Path != ":memory:" {
			dir := filepath.Dir(cfg.Database.Path)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		return sqliteRepo.New(cfg.Database.Path)

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func newSessionStore(cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Mode {
	case config.SessionCookie:
		return session.NewCookie(cfg.Secret, cfg.DefaultUserID, cfg.Secure)
	case config.SessionGlobal:
		return session.NewGlobal(cfg.DefaultUserID), nil
	default:
		return nil, fmt.Errorf("unknown session mode %q", cfg.Mode)
	}
}

// templates returns TEMPLATE_DIR when set, otherwise the embedded templates.
func (s *Server) templates() fs.FS {
	if s.config.Server.TemplateDir != "" {
		return os.DirFS(s.config.Server.TemplateDir)
	}
	return web.Templates()
}

// setupRoutes configures middleware and routes.
//
//	GET  /               → index page
//	POST /add            → add a visited country
//	POST /delete-country → remove a visited country
//	POST /user           → switch, add or delete a user
//	GET  /new            → new-user form
//	POST /new            → create a user
//	GET  /static/*       → stylesheet and map script
//	GET  /metrics        → Prometheus exposition
//	GET  /healthz        → store ping
//
// Only the page routes load the session; static files, metrics and health
// checks do not need a current user.
func (s *Server) setupRoutes() error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(s.registry)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Handler)

	fileServer := http.FileServer(http.FS(web.Static()))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	s.router.Get("/healthz", s.handleHealth)

	tracker := service.NewTrackerService(s.store, s.store, s.logger)
	users := service.NewUserService(s.store, s.logger)

	h, err := handler.NewTrackerHandler(tracker, users, s.sessions, s.templates(), s.logger)
	if err != nil {
		return fmt.Errorf("creating tracker handler: %w", err)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(session.Middleware(s.sessions))

		r.Get("/", h.HandleIndex)
		r.Post("/add", h.HandleAddCountry)
		r.Post("/delete-country", h.HandleDeleteCountry)
		r.Post("/user", h.HandleUser)
		r.Get("/new", h.HandleNewUserForm)
		r.Post("/new", h.HandleCreateUser)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// Handler returns the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("config", s.config.String()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
