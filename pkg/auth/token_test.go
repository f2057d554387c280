package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService(staticSecretStore{secret: "k"}, 0)
	assert.Equal(t, DefaultTokenTTL, tokens.TTL())
	assert.Equal(t, int64(5400000), tokens.TTLMillis())

	tests := []struct {
		name   string
		claims Claims
	}{
		{name: "standard", claims: Claims{Email: "a@b.org", ID: 7}},
		{name: "content manager", claims: Claims{Email: "cm@b.org", ID: 1, Cont: 1}},
		{name: "guest", claims: Claims{Email: "guest@b.org", ID: 2, Cont: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tokens.Issue(context.Background(), tt.claims)
			require.NoError(t, err)

			got, err := tokens.Verify(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, tt.claims.Email, got.Email)
			assert.Equal(t, tt.claims.ID, got.ID)
			assert.Equal(t, tt.claims.Cont, got.Cont)
			require.NotNil(t, got.ExpiresAt)
		})
	}
}

func TestTokenService_Expiry(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenService(staticSecretStore{secret: "k"}, time.Minute, WithClock(fixedClock(issued)))

	token, err := issuer.IssueWithTTL(context.Background(), Claims{Email: "a@b.org", ID: 7}, time.Millisecond)
	require.NoError(t, err)

	later := NewTokenService(staticSecretStore{secret: "k"}, time.Minute, WithClock(fixedClock(issued.Add(2*time.Second))))
	_, err = later.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_ValidWithinTTL(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenService(staticSecretStore{secret: "k"}, 90*time.Minute, WithClock(fixedClock(issued)))

	token, err := issuer.Issue(context.Background(), Claims{Email: "a@b.org", ID: 7})
	require.NoError(t, err)

	verifier := NewTokenService(staticSecretStore{secret: "k"}, 90*time.Minute, WithClock(fixedClock(issued.Add(89*time.Minute))))
	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.ID)
}

func TestTokenService_Invalid(t *testing.T) {
	tokens := NewTokenService(staticSecretStore{secret: "k"}, time.Minute)
	token, err := tokens.Issue(context.Background(), Claims{Email: "a@b.org", ID: 7})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := tokens.VerifyWithSecret(token, "other")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := tokens.VerifyWithSecret("not.a.token", "k")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		_, err := tokens.VerifyWithSecret(token+"x", "k")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Email: "a@b.org",
			ID:    1,
			Cont:  1,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.VerifyWithSecret(unsigned, "k")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing expiry rejected", func(t *testing.T) {
		noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "a@b.org", ID: 1}).
			SignedString([]byte("k"))
		require.NoError(t, err)

		_, err = tokens.VerifyWithSecret(noExp, "k")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestTokenService_SecretFailureFailsClosed(t *testing.T) {
	tokens := NewTokenService(staticSecretStore{err: ErrSecretNotFound}, time.Minute)

	_, err := tokens.Issue(context.Background(), Claims{Email: "a@b.org", ID: 7})
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = tokens.Verify(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}
