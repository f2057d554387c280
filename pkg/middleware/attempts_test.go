package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

func setupLimiter(t *testing.T, limit int) (*AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})
	return NewAttemptLimiter(client, limit, time.Minute, logger), mr
}

func attempt(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/swim-auth-api/authenticate", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAttemptLimiter_Limit(t *testing.T) {
	limiter, mr := setupLimiter(t, 2)
	handler := limiter.Limit("authenticate")(okHandler())

	first := attempt(handler, "10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, attempt(handler, "10.0.0.1:5001").Code)

	blocked := attempt(handler, "10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.JSONEq(t, `{"message":"Too many attempts, try again later."}`, blocked.Body.String())
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, attempt(handler, "10.0.0.2:5000").Code, "other clients are counted separately")

	mr.FastForward(61 * time.Second)
	assert.Equal(t, http.StatusOK, attempt(handler, "10.0.0.1:5003").Code, "window resets")
}

func TestAttemptLimiter_WindowNotExtended(t *testing.T) {
	limiter, mr := setupLimiter(t, 10)
	ctx := context.Background()

	_, _, _, err := limiter.Allow(ctx, "signup:1.2.3.4")
	require.NoError(t, err)
	mr.FastForward(30 * time.Second)

	_, count, ttl, err := limiter.Allow(ctx, "signup:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.LessOrEqual(t, ttl, 30*time.Second)

	require.NoError(t, limiter.Reset(ctx, "signup:1.2.3.4"))
	assert.False(t, mr.Exists("swim:attempts:signup:1.2.3.4"))
}

func TestAttemptLimiter_FailsOpen(t *testing.T) {
	limiter, mr := setupLimiter(t, 1)
	handler := limiter.Limit("authenticate")(okHandler())
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, attempt(handler, "10.0.0.1:5000").Code)
	}
}

func TestAttemptLimiter_Disabled(t *testing.T) {
	var nilLimiter *AttemptLimiter
	assert.Equal(t, http.StatusOK, attempt(nilLimiter.Limit("authenticate")(okHandler()), "10.0.0.1:1").Code)

	limiter, mr := setupLimiter(t, 0)
	handler := limiter.Limit("authenticate")(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, attempt(handler, "10.0.0.1:5000").Code)
	}
	assert.Empty(t, mr.Keys())
}

func TestAttemptLimiter_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	limiter, _ := setupLimiter(t, 2)
	handler := limiter.Limit("authenticate")(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/swim-auth-api/authenticate", nil)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.3"), "rotating headers must not reset the count")
}

func TestAttemptLimiter_TrustedProxyHeaders(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})
	limiter := NewAttemptLimiter(client, 1, time.Minute, logger, WithTrustedProxies(proxies))
	handler := limiter.Limit("authenticate")(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/swim-auth-api/authenticate", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"), "each forwarded client has its own counter")
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
	assert.True(t, mr.Exists("swim:attempts:authenticate:203.0.113.2"))
}

func TestClientAddress(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	logger := observability.NewLogger(observability.InfoLevel, &bytes.Buffer{})
	behindProxy := NewAttemptLimiter(nil, 1, time.Minute, logger, WithTrustedProxies(proxies))
	direct := NewAttemptLimiter(nil, 1, time.Minute, logger)

	tests := []struct {
		name       string
		limiter    *AttemptLimiter
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "remote addr", limiter: direct, remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "untrusted forwarded", limiter: direct, headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, remoteAddr: "10.0.0.1:1", want: "10.0.0.1"},
		{name: "untrusted real ip", limiter: direct, headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remoteAddr: "10.0.0.1:1", want: "10.0.0.1"},
		{name: "trusted forwarded chain", limiter: behindProxy, headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, remoteAddr: "10.0.0.1:1", want: "203.0.113.7"},
		{name: "spoofed hop before client", limiter: behindProxy, headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.7"}, remoteAddr: "10.0.0.1:1", want: "203.0.113.7"},
		{name: "trusted real ip", limiter: behindProxy, headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remoteAddr: "10.0.0.1:1", want: "198.51.100.2"},
		{name: "headers from outside the proxy range", limiter: behindProxy, headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, remoteAddr: "172.16.0.1:1", want: "172.16.0.1"},
		{name: "no port", limiter: direct, remoteAddr: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, tt.limiter.clientAddress(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	networks, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "::1"})
	require.NoError(t, err)
	require.Len(t, networks, 3)
	assert.Equal(t, "192.0.2.1/32", networks[1].String())
	assert.Equal(t, "::1/128", networks[2].String())

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
