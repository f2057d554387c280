// Package api provides the HTTP surface of the SWIM services.
//
// # Overview
//
// Three route groups are mounted on a gorilla/mux router, each by a handler
// type implementing RouteRegistrar:
//
//   - AuthHandlers: /swim-auth-api signup, authenticate, authenticateGuest and change
//   - ExecutionHandlers: /swim-api/executions scenario lookups, listings,
//     cross-scenario output filtering and deletion
//   - LoggerHandlers: /swim-logger-api levels, event categories, events and
//     model execution records
//
// The server also exposes /healthz, /readyz and /metrics when the matching
// dependencies are supplied.
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{
//		Auth:      controller,
//		Scenarios: resolver,
//		Logs:      audit.NewStore(logDB),
//		Events:    events,
//		Protect:   authMiddleware.Handler,
//		Limiter:   limiter,
//		Context:   cfg.Server.Context,
//		Logger:    logger,
//	})
//	http.ListenAndServe(":8080", server)
//
// # Authentication
//
// Every execution and logger route runs behind Dependencies.Protect, which
// verifies the token and stores the claims in the request context. Handlers
// read the caller with middleware.ClaimsFromContext; private scenario
// operations are always scoped to that caller. When Protect is nil every
// protected route answers 401.
//
// # Errors
//
// Domain errors are classified with errors.Is at this boundary. Failures of
// the backing stores answer 500 {"message":"Database connection error"} and
// are logged; the logger API also records them as server events.
package api
