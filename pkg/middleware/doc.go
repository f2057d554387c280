// Package middleware provides HTTP middleware for token authentication and
// credential attempt limiting.
//
// # AuthMiddleware
//
// AuthMiddleware reads the Authorization header ("JWT <token>" or
// "Bearer <token>"), fetches the signing secret and verifies the token. A
// request without a token is rejected with 401 before any secret or token work
// is done. A token that fails verification is rejected with 403. Verified
// claims are stored on the request context:
//
//	mw := middleware.NewAuthMiddleware(secrets, tokens, logger)
//	router.Handle("/private", mw.Handler(handler))
//
//	claims, ok := middleware.ClaimsFromContext(r.Context())
//
// RequireContentManager must run after AuthMiddleware; it rejects claims
// without the content-manager marker with 401.
//
// # AttemptLimiter
//
// AttemptLimiter counts attempts per route and client address in Redis with a
// fixed window:
//
//	limiter := middleware.NewAttemptLimiter(redisClient, 20, time.Minute, logger)
//	router.Handle("/authenticate", limiter.Limit("authenticate")(loginHandler))
//
// Clients are keyed by their connecting address. Behind a load balancer, pass
// WithTrustedProxies so X-Forwarded-For and X-Real-IP from those peers are used.
//
// Requests over the limit receive 429 with Retry-After. Redis failures are
// logged and the request proceeds. A nil limiter or a limit of zero disables
// limiting.
package middleware
