package api

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/audit"
	"github.com/legatepro/legate/pkg/auth"
	"github.com/legatepro/legate/pkg/config"
	"github.com/legatepro/legate/pkg/documents"
	"github.com/legatepro/legate/pkg/estates"
	"github.com/legatepro/legate/pkg/invoices"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/notes"
	"github.com/legatepro/legate/pkg/observability"
	"github.com/legatepro/legate/pkg/properties"
	"github.com/legatepro/legate/pkg/readiness"
	"github.com/legatepro/legate/pkg/rent"
	"github.com/legatepro/legate/pkg/sso"
	"github.com/legatepro/legate/pkg/storage"
	"github.com/legatepro/legate/pkg/tasks"
	"github.com/legatepro/legate/pkg/utilities"
)

// Dependencies carries the shared infrastructure the server builds on
type Dependencies struct {
	DB       *sql.DB
	Redis    *redis.Client
	Files    *storage.FileStore
	Sessions auth.Service
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Version  string

	// Optional sink for the audit event fan-out; nil keeps events
	// database-only
	AuditLog io.Writer

	// Planner provider; a nil provider disables plan generation
	PlanProvider readiness.TextProvider

	// SSO providers (nil entries are skipped)
	SSOProviders []sso.Provider
}

// Server is the assembled HTTP application
type Server struct {
	cfg    *config.Config
	deps   *Dependencies
	server *http.Server
	health *http.Server
}

// NewServer wires all resource services behind the middleware chain
func NewServer(cfg *config.Config, deps *Dependencies) (*Server, error) {
	resolver := access.NewSQLResolver(deps.DB, deps.Metrics)
	guard := access.NewGuard(resolver, deps.Metrics)

	eventStore := audit.NewDBLogger(deps.DB, deps.Metrics)
	var events audit.Logger = eventStore
	if deps.AuditLog != nil {
		events = audit.NewMultiLogger(eventStore, audit.NewFileLogger(deps.AuditLog))
	}

	router := mux.NewRouter()

	estates.NewHandlers(estates.NewService(deps.DB, guard, events)).RegisterRoutes(router)
	properties.NewHandlers(properties.NewService(deps.DB, guard, events)).RegisterRoutes(router)
	rent.NewHandlers(rent.NewService(deps.DB, guard, events)).RegisterRoutes(router)
	utilities.NewHandlers(utilities.NewService(deps.DB, guard, events)).RegisterRoutes(router)
	tasks.NewHandlers(tasks.NewService(deps.DB, guard, events)).RegisterRoutes(router)
	notes.NewHandlers(notes.NewService(deps.DB, guard, events)).RegisterRoutes(router)
	invoices.NewHandlers(invoices.NewService(deps.DB, guard, events, deps.Metrics)).RegisterRoutes(router)
	documents.NewHandlers(documents.NewService(deps.DB, guard, deps.Files, events)).RegisterRoutes(router)
	audit.NewHandlers(eventStore, guard).RegisterRoutes(router)

	if deps.PlanProvider != nil {
		planner, err := readiness.NewPlanner(deps.PlanProvider, cfg.Planner.CacheSize, deps.Metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to build planner: %w", err)
		}
		readiness.NewHandlers(readiness.NewCollector(deps.DB), planner, guard).RegisterRoutes(router)
	}

	sso.NewHandlers(deps.Sessions, cfg.Auth.SessionTTL, deps.Logger, deps.SSOProviders...).RegisterRoutes(router)

	handler := buildMiddlewareChain(router, cfg, deps)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		cfg:    cfg,
		deps:   deps,
		server: server,
		health: buildHealthServer(cfg, deps),
	}, nil
}

// buildMiddlewareChain wraps the router outermost-first: recovery, then
// request IDs, logging, metrics, rate limiting and finally auth.
func buildMiddlewareChain(router http.Handler, cfg *config.Config, deps *Dependencies) http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(deps.Sessions, true)
	handler := authMiddleware.Handler(router)

	if cfg.RateLimit.Enabled && deps.Redis != nil {
		rateLimiter := middleware.NewRateLimitMiddleware(deps.Redis, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.Window,
		})
		handler = rateLimiter.Handler(handler)
	}

	if cfg.Observability.MetricsEnabled && deps.Metrics != nil {
		handler = observability.HTTPMetricsMiddleware(deps.Metrics)(handler)
	}
	handler = observability.LoggingMiddleware(deps.Logger)(handler)
	handler = observability.RequestIDMiddleware(handler)
	handler = observability.RecoveryMiddleware(deps.Logger)(handler)
	return handler
}

// buildHealthServer serves liveness, readiness and metrics on the
// health port so probes never compete with API traffic
func buildHealthServer(cfg *config.Config, deps *Dependencies) *http.Server {
	checker := observability.NewHealthChecker(deps.DB, deps.Redis, deps.Version)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", checker.Liveness).Methods("GET")
	router.HandleFunc("/readyz", checker.Readiness).Methods("GET")
	if cfg.Observability.MetricsEnabled && deps.Registry != nil {
		router.Handle("/metrics", observability.Handler(deps.Registry)).Methods("GET")
	}

	return &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Start runs the health listener in the background and then serves the
// API until the server is shut down
func (s *Server) Start() error {
	go func() {
		s.deps.Logger.WithField("addr", s.health.Addr).Info("health server listening")
		if err := s.health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.deps.Logger.WithError(err).Error("health server failed")
		}
	}()

	s.deps.Logger.WithField("addr", s.server.Addr).Info("server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// HTTPServer exposes the API server for shutdown coordination
func (s *Server) HTTPServer() *http.Server { return s.server }

// HealthServer exposes the health listener for shutdown coordination
func (s *Server) HealthServer() *http.Server { return s.health }
