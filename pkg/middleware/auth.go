package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
	"github.com/iLink-CyberShARE/swim-api/pkg/contextkeys"
	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

const tokenRequiredMessage = "Authentication error. Token required."

// TokenVerifier checks a bearer token against the signing secret
type TokenVerifier interface {
	VerifyWithSecret(token, secret string) (*auth.Claims, error)
}

// AuthMiddleware guards protected routes with a bearer token
type AuthMiddleware struct {
	secrets auth.SecretStore
	tokens  TokenVerifier
	logger  *observability.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(secrets auth.SecretStore, tokens TokenVerifier, logger *observability.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secrets: secrets,
		tokens:  tokens,
		logger:  logger.WithField("component", "auth_middleware"),
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "JWT <token>" or "Bearer <token>"
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error":  tokenRequiredMessage,
				"status": http.StatusUnauthorized,
			})
			return
		}

		secret, err := m.secrets.Read(r.Context())
		if err != nil {
			m.logger.WithError(err).Error("failed to read signing secret")
			tokenError(w, "secret unavailable")
			return
		}

		claims, err := m.tokens.VerifyWithSecret(token, secret)
		if err != nil {
			m.logger.WithError(err).Debug("token rejected")
			tokenError(w, rejectionReason(err))
			return
		}

		ctx := contextkeys.WithClaims(r.Context(), claims)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(claims.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims attached by AuthMiddleware
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := contextkeys.GetClaims(ctx).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireContentManager rejects requests whose claims lack the content-manager marker
func RequireContentManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if !claims.IsContentManager() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Access denied."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken returns the credential following the scheme word, or ""
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	switch scheme {
	case "JWT", "Bearer":
		return strings.TrimSpace(token)
	default:
		return ""
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "jwt expired"
	case errors.Is(err, auth.ErrTokenInvalid):
		return "invalid token"
	default:
		return "unverifiable token"
	}
}

func tokenError(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusForbidden, map[string]string{"message": reason + " token error"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
