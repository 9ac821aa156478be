package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/legatepro/legate/pkg/api"
	"github.com/legatepro/legate/pkg/auth"
	"github.com/legatepro/legate/pkg/config"
	"github.com/legatepro/legate/pkg/observability"
	"github.com/legatepro/legate/pkg/readiness"
	"github.com/legatepro/legate/pkg/sso"
	"github.com/legatepro/legate/pkg/storage"
)

var version = "dev"

func main() {
	migrate := flag.Bool("migrate", true, "Run schema migrations on startup")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting legate")

	ctx := context.Background()

	db, err := storage.OpenPostgres(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	if *migrate {
		if err := storage.Migrate(ctx, db); err != nil {
			logger.WithError(err).Error("failed to run migrations")
			os.Exit(1)
		}
	}

	redisClient, err := storage.NewRedisClient(cfg.Storage)
	if err != nil {
		if cfg.RateLimit.Enabled {
			logger.WithError(err).Error("failed to connect to redis")
			os.Exit(1)
		}
		logger.WithError(err).Warn("redis unavailable, continuing without it")
		redisClient = nil
	}

	files, err := storage.NewFileStore(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to initialize file store")
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: version,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize tracing")
		os.Exit(1)
	}

	deps := &api.Dependencies{
		DB:       db,
		Redis:    redisClient,
		Files:    files,
		Sessions: auth.NewPostgresService(db),
		Logger:   logger,
		Metrics:  metrics,
		Registry: registry,
		Version:  version,
	}

	if cfg.Observability.AuditLogFile != "" {
		auditLog, err := os.OpenFile(cfg.Observability.AuditLogFile,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Error("failed to open audit log file")
			os.Exit(1)
		}
		defer auditLog.Close()
		deps.AuditLog = auditLog
	}

	if cfg.Planner.Endpoint != "" {
		deps.PlanProvider = readiness.NewHTTPTextProvider(
			cfg.Planner.Endpoint, cfg.Planner.APIKey, cfg.Planner.Model, cfg.Planner.Timeout)
	}

	if cfg.SSO.OIDCEnabled {
		provider, err := sso.NewOIDCProvider(ctx, cfg.SSO)
		if err != nil {
			logger.WithError(err).Error("failed to initialize OIDC provider")
			os.Exit(1)
		}
		deps.SSOProviders = append(deps.SSOProviders, provider)
	}
	if cfg.SSO.SAMLEnabled {
		provider, err := sso.NewSAMLProvider(cfg.SSO)
		if err != nil {
			logger.WithError(err).Error("failed to initialize SAML provider")
			os.Exit(1)
		}
		deps.SSOProviders = append(deps.SSOProviders, provider)
	}

	server, err := api.NewServer(cfg, deps)
	if err != nil {
		logger.WithError(err).Error("failed to build server")
		os.Exit(1)
	}

	shutdown := observability.NewShutdownManager(logger, server.HTTPServer(), cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return server.HealthServer().Shutdown(ctx)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(otelProviders.Shutdown)
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Error("server exited")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
