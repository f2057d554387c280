// Package observability provides structured logging, Prometheus metrics, health checks,
// OpenTelemetry tracing and graceful shutdown.
//
// # Structured Logging
//
// The Logger wraps logrus and is passed explicitly or through the request context:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("password changed")
//	observability.FromContext(ctx).WithError(err).Error("lookup failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.LoginsTotal.WithLabelValues("success").Inc()
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(map[string]*sql.DB{"auth": db}, redisClient, version)
//	router.HandleFunc("/healthz", checker.Liveness)
//	router.HandleFunc("/readyz", checker.Readiness)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{...}, logger)
//	defer observability.ShutdownOTel(ctx, providers)
//	handler = observability.InstrumentHandler(router, "swim-api")
package observability
