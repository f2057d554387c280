package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// SecretSource performs the underlying single-row secret lookup.
// It returns ErrSecretNotFound when the row is absent.
type SecretSource interface {
	ReadSecret(ctx context.Context) (string, error)
}

// SecretStore returns the signing secret
type SecretStore interface {
	Read(ctx context.Context) (string, error)
	Invalidate()
}

// CachedSecretStore reads the secret once and serves it from memory afterwards.
// Failed reads are not cached.
type CachedSecretStore struct {
	source  SecretSource
	metrics *observability.Metrics

	mu     sync.RWMutex
	secret string
	group  singleflight.Group
}

// NewCachedSecretStore wraps source; metrics may be nil
func NewCachedSecretStore(source SecretSource, metrics *observability.Metrics) *CachedSecretStore {
	return &CachedSecretStore{source: source, metrics: metrics}
}

// Read returns the cached secret, loading it on first use
func (s *CachedSecretStore) Read(ctx context.Context) (string, error) {
	s.mu.RLock()
	secret := s.secret
	s.mu.RUnlock()
	if secret != "" {
		s.record("hit")
		return secret, nil
	}

	s.record("miss")
	// the load is shared by every waiter, so it must outlive the caller that started it
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("secret", func() (interface{}, error) {
		value, err := s.source.ReadSecret(loadCtx)
		if err != nil {
			if errors.Is(err, ErrSecretNotFound) {
				return "", ErrSecretNotFound
			}
			return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
		}
		if value == "" {
			return "", ErrSecretNotFound
		}

		s.mu.Lock()
		s.secret = value
		s.mu.Unlock()
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			s.record("error")
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		s.record("error")
		return "", fmt.Errorf("%w: %w", ErrSecretUnavailable, ctx.Err())
	}
}

// Invalidate drops the cached value so the next Read reloads it
func (s *CachedSecretStore) Invalidate() {
	s.mu.Lock()
	s.secret = ""
	s.mu.Unlock()
}

func (s *CachedSecretStore) record(result string) {
	if s.metrics != nil {
		s.metrics.SecretCacheTotal.WithLabelValues(result).Inc()
	}
}
