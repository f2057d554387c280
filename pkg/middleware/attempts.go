package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

const attemptPrefix = "swim:attempts"

// AttemptLimiter caps credential attempts per client with a fixed window
// counter in Redis, so the limit holds across instances
type AttemptLimiter struct {
	redis   *redis.Client
	limit   int
	window  time.Duration
	logger  *observability.Logger
	now     func() time.Time
	proxies []*net.IPNet
}

// LimiterOption configures an AttemptLimiter
type LimiterOption func(*AttemptLimiter)

// WithTrustedProxies makes the limiter key on X-Forwarded-For and X-Real-IP
// when the connecting peer is inside one of networks
func WithTrustedProxies(networks []*net.IPNet) LimiterOption {
	return func(l *AttemptLimiter) {
		l.proxies = networks
	}
}

// NewAttemptLimiter creates a limiter allowing limit attempts per window.
// Without trusted proxies every client is keyed by its connecting address.
func NewAttemptLimiter(redisClient *redis.Client, limit int, window time.Duration, logger *observability.Logger, opts ...LimiterOption) *AttemptLimiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &AttemptLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		logger: logger.WithField("component", "attempt_limiter"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseTrustedProxies parses CIDR ranges or single addresses
func ParseTrustedProxies(values []string) ([]*net.IPNet, error) {
	networks := make([]*net.IPNet, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !strings.Contains(value, "/") {
			ip := net.ParseIP(value)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", value)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", value, err)
		}
		networks = append(networks, network)
	}
	return networks, nil
}

// Allow counts one attempt for key and reports whether it is within the limit
// and how long until the window resets
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, int64, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", attemptPrefix, key)

	pipe := l.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, 0, fmt.Errorf("redis error: %w", err)
	}

	// the window starts with the first attempt and is not extended by later ones
	ttl := ttlCmd.Val()
	if ttl < 0 {
		if err := l.redis.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, 0, 0, fmt.Errorf("redis error: %w", err)
		}
		ttl = l.window
	}

	count := incr.Val()
	return count <= int64(l.limit), count, ttl, nil
}

// Reset clears the counter for key
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, fmt.Sprintf("%s:%s", attemptPrefix, key)).Err()
}

// Limit wraps next, counting attempts under route per client address.
// Redis failures let the request through.
func (l *AttemptLimiter) Limit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil || l.limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, ttl, err := l.Allow(r.Context(), route+":"+l.clientAddress(r))
			if err != nil {
				l.logger.WithError(err).Warn("attempt limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			if ttl <= 0 {
				ttl = l.window
			}
			remaining := int64(l.limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(l.now().Add(ttl).Unix(), 10))

			if !allowed {
				l.logger.WithFields(map[string]interface{}{
					"route":  route,
					"client": l.clientAddress(r),
				}).Warn("too many attempts")
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", ttl.Seconds()))
				writeJSON(w, http.StatusTooManyRequests, map[string]string{
					"message": "Too many attempts, try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddress identifies the caller. Proxy headers are only read when the
// connecting peer is a trusted proxy, since any client can set them.
func (l *AttemptLimiter) clientAddress(r *http.Request) string {
	peer := remoteHost(r)
	if !l.trusted(peer) {
		return peer
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// the nearest hop not in a trusted range is the client
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !l.trusted(hop) {
				return hop
			}
		}
		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func (l *AttemptLimiter) trusted(host string) bool {
	if len(l.proxies) == 0 {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range l.proxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
