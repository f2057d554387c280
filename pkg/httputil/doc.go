// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
// Failures are written under the key the SWIM clients expect:
//
//	httputil.WriteMessage(w, http.StatusBadRequest, "Please provide email and password")  // {"message": ...}
//	httputil.WriteErrorMessage(w, http.StatusNotFound, "No scenarios found")              // {"error": ...}
//
// Scenario results use the semantic envelope:
//
//	httputil.WriteEnvelope(w, cfg.Server.Context, "Scenario run retrieved successfully", doc)
//	// {"@context": "...", "message": "...", "result": {...}}
//
// # Request Parsing
//
//	var req auth.LoginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.MaxBytesMiddleware(1 << 20),
//	)(router)
//
// RequestIDMiddleware reuses an incoming X-Request-ID or generates a UUID and
// stores it with contextkeys.WithRequestID. LoggingMiddleware writes one
// structured entry per request, including the trace id when a span is active.
package httputil
