package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iLink-CyberShARE/swim-api/pkg/api"
	"github.com/iLink-CyberShARE/swim-api/pkg/async"
	"github.com/iLink-CyberShARE/swim-api/pkg/audit"
	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
	"github.com/iLink-CyberShARE/swim-api/pkg/config"
	"github.com/iLink-CyberShARE/swim-api/pkg/httputil"
	"github.com/iLink-CyberShARE/swim-api/pkg/middleware"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
	"github.com/iLink-CyberShARE/swim-api/pkg/scenarios"
	"github.com/iLink-CyberShARE/swim-api/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	dbStatsInterval     = 15 * time.Second
	secretWarmupTimeout = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "swim-api: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLoggerWithFormat(cfg.Observability.Level(), os.Stdout, cfg.Observability.LogFormat)
	defer observability.RecoverPanic(logger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// cleanup on a failed startup; once serving, the shutdown manager owns it
	serving := false

	// Databases
	conns := postgres.NewConnectionManager(postgres.ConnectionConfig{
		Driver:      cfg.Storage.Driver,
		MaxConns:    cfg.Storage.MaxOpenConns,
		MinConns:    cfg.Storage.MaxIdleConns,
		MaxLifetime: cfg.Storage.ConnMaxLifetime,
	})
	defer func() {
		if err != nil && !serving {
			conns.Close()
		}
	}()

	authDB, err := conns.Connect(ctx, "auth", cfg.Storage.AuthDatabaseURL)
	if err != nil {
		return err
	}
	logDB, err := conns.Connect(ctx, "log", cfg.Storage.LogDatabaseURL)
	if err != nil {
		return err
	}
	// sqlite has no JSONB support, so scenarios are kept in memory there
	var scenarioDB *sql.DB
	if conns.Driver() != postgres.DriverSQLite {
		scenarioDB, err = conns.Connect(ctx, "scenario", cfg.Storage.ScenarioDatabaseURL)
		if err != nil {
			return err
		}
	}
	if cfg.Storage.RunMigrations {
		if err = migrate(ctx, conns.Driver(), authDB, logDB, scenarioDB); err != nil {
			return err
		}
	}

	var cache *postgres.RedisClient
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		cache, err = postgres.NewRedisClient(ctx, postgres.RedisConfig{URL: cfg.Storage.RedisURL})
		if err != nil {
			return err
		}
		redisClient = cache.Client()
		defer func() {
			if err != nil && !serving {
				cache.Close()
			}
		}()
	}

	// Audit pipeline
	dbLogger, err := audit.NewDBLogger(logDB)
	if err != nil {
		return err
	}
	var sink audit.Logger = dbLogger
	if cfg.Audit.MirrorToLog {
		sink = audit.NewMultiLogger(dbLogger, audit.NewLogrusLogger(logger))
	}
	events := audit.NewAsyncLogger(sink, cfg.Audit.BufferSize, logger, metrics)
	defer func() {
		if err != nil && !serving {
			events.Close()
		}
	}()

	var retention *audit.Retention
	if cfg.Audit.RetentionDays > 0 {
		retention, err = audit.NewRetention(dbLogger, cfg.Audit.RetentionDays, cfg.Audit.RetentionSchedule, logger)
		if err != nil {
			return err
		}
	}

	// Credentials
	secrets := auth.NewCachedSecretStore(postgres.NewSecretSource(authDB), metrics)
	tokens := auth.NewTokenService(secrets, cfg.Auth.TokenTTL, auth.WithTokenMetrics(metrics))
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	credentials := postgres.NewCredentialStore(authDB)

	controller := auth.NewController(credentials, hasher, tokens, events,
		auth.GuestAccount{Email: cfg.Auth.Guest.Email, Password: cfg.Auth.Guest.Password},
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
	)

	if err = provision(ctx, auth.NewProvisioner(credentials, hasher), cfg.Auth, logger); err != nil {
		return err
	}

	// Scenarios
	var store scenarios.Store
	if scenarioDB != nil {
		store = postgres.NewScenarioStore(scenarioDB)
		if cache != nil {
			listings := postgres.NewScenarioCache(store, cache, cfg.Storage.CacheTTL, logger, metrics)
			// public scenarios are published outside this service, so a restart refreshes shared listings
			if ierr := listings.Invalidate(ctx); ierr != nil {
				logger.WithError(ierr).Warn("failed to flush cached scenario listings")
			}
			store = listings
		}
	} else {
		logger.Warn("sqlite driver: scenarios are served from an in-memory store")
		store = scenarios.NewMemoryStore()
	}
	var documents *scenarios.DocumentCache
	if cfg.Storage.DocumentCacheSize > 0 {
		documents = scenarios.NewDocumentCache(cfg.Storage.DocumentCacheSize, cfg.Storage.CacheTTL, metrics)
	}
	resolver := scenarios.NewResolver(store, documents)

	var limiter *middleware.AttemptLimiter
	if redisClient != nil && cfg.Auth.AttemptLimit > 0 {
		proxies, perr := middleware.ParseTrustedProxies(cfg.Auth.TrustedProxies)
		if perr != nil {
			return perr
		}
		limiter = middleware.NewAttemptLimiter(redisClient, cfg.Auth.AttemptLimit, cfg.Auth.AttemptWindow, logger,
			middleware.WithTrustedProxies(proxies))
	}

	deps := api.Dependencies{
		Auth:      controller,
		Scenarios: resolver,
		Logs:      audit.NewStore(logDB),
		Events:    events,
		Protect:   middleware.NewAuthMiddleware(secrets, tokens, logger).Handler,
		Limiter:   limiter,
		Health:    observability.NewHealthChecker(conns.Databases(), redisClient, version),
		Context:   cfg.Server.Context,
		Logger:    logger,
	}
	if cfg.Observability.MetricsEnabled {
		deps.Registry = registry
	}

	server := api.NewServer(deps)
	server.Router().Use(observability.HTTPMetricsMiddleware(metrics))

	var handler http.Handler = httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(cfg.Server.CORSOrigins),
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)(server)
	if otelProviders != nil {
		handler = observability.InstrumentHandler(handler, cfg.Observability.OTelServiceName)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	// events drain into the log database, so they close before the pools
	shutdown.Register("storage", func(ctx context.Context) error {
		var errs []error
		if retention != nil {
			errs = append(errs, retention.Stop(ctx))
		}
		errs = append(errs, events.Close())
		if cache != nil {
			errs = append(errs, cache.Close())
		}
		errs = append(errs, conns.Close())
		return errors.Join(errs...)
	})
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders)
	})

	serving = true

	if retention != nil {
		retention.Start()
	}
	async.Go(ctx, secretWarmupTimeout, logger, "secret warmup", func(ctx context.Context) error {
		_, err := secrets.Read(ctx)
		return err
	})
	async.Every(ctx, dbStatsInterval, logger, "db stats", func(context.Context) error {
		for name, stats := range conns.Stats() {
			metrics.RecordDBStats(name, stats)
		}
		return nil
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":    httpServer.Addr,
			"driver":  conns.Driver(),
			"version": version,
		}).Info("Starting SWIM API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case serveErr := <-serverErr:
		if shutdownErr := shutdown.Shutdown(); shutdownErr != nil {
			logger.WithError(shutdownErr).Error("Shutdown failed")
		}
		return fmt.Errorf("server failed: %w", serveErr)
	case <-ctx.Done():
		return shutdown.WaitForShutdown(ctx)
	}
}

// migrate applies the schema once per distinct pool
func migrate(ctx context.Context, driver string, dbs ...*sql.DB) error {
	seen := make(map[*sql.DB]bool, len(dbs))
	for _, db := range dbs {
		if db == nil || seen[db] {
			continue
		}
		seen[db] = true
		if err := postgres.RunMigrations(ctx, db, driver); err != nil {
			return err
		}
	}
	return nil
}

// provision creates the configured admin and guest accounts if missing
func provision(ctx context.Context, p *auth.Provisioner, cfg config.AuthConfig, logger *observability.Logger) error {
	accounts := []struct {
		account config.Account
		role    auth.Role
	}{
		{cfg.Admin, auth.RoleContentManager},
		{cfg.Guest, auth.RoleGuest},
	}

	for _, a := range accounts {
		if a.account.Email == "" {
			continue
		}
		created, err := p.EnsureAccount(ctx, a.account.Email, a.account.Password, a.role)
		if err != nil {
			return fmt.Errorf("failed to provision %s account: %w", a.role, err)
		}
		if created {
			logger.WithFields(map[string]interface{}{
				"email": a.account.Email,
				"role":  a.role.String(),
			}).Info("Provisioned account")
		}
	}
	return nil
}
