package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// DefaultTokenTTL is the lifetime of every issued token unless configured otherwise
const DefaultTokenTTL = 90 * time.Minute

// TokenService issues and verifies HS256 bearer tokens signed with the cached secret
type TokenService struct {
	secrets SecretStore
	ttl     time.Duration
	now     func() time.Time
	metrics *observability.Metrics
}

// TokenOption configures a TokenService
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithTokenMetrics records verification outcomes
func WithTokenMetrics(m *observability.Metrics) TokenOption {
	return func(s *TokenService) { s.metrics = m }
}

// NewTokenService creates a token service; a non-positive ttl selects DefaultTokenTTL
func NewTokenService(secrets SecretStore, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{secrets: secrets, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured token lifetime
func (s *TokenService) TTL() time.Duration { return s.ttl }

// TTLMillis returns the token lifetime in milliseconds, as reported to clients
func (s *TokenService) TTLMillis() int64 { return s.ttl.Milliseconds() }

// Issue signs claims with the configured TTL
func (s *TokenService) Issue(ctx context.Context, claims Claims) (string, error) {
	return s.IssueWithTTL(ctx, claims, s.ttl)
}

// IssueWithTTL signs claims expiring after ttl
func (s *TokenService) IssueWithTTL(ctx context.Context, claims Claims, ttl time.Duration) (string, error) {
	secret, err := s.secrets.Read(ctx)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify checks the token against the cached secret
func (s *TokenService) Verify(ctx context.Context, token string) (*Claims, error) {
	secret, err := s.secrets.Read(ctx)
	if err != nil {
		s.record("secret_error")
		return nil, err
	}
	return s.VerifyWithSecret(token, secret)
}

// VerifyWithSecret checks the signature and expiry of token using secret.
// Any role is verified the same way.
func (s *TokenService) VerifyWithSecret(token, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.record("expired")
			return nil, ErrTokenExpired
		}
		s.record("invalid")
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		s.record("invalid")
		return nil, ErrTokenInvalid
	}

	s.record("valid")
	return claims, nil
}

func (s *TokenService) record(result string) {
	if s.metrics != nil {
		s.metrics.TokenVerificationsTotal.WithLabelValues(result).Inc()
	}
}
