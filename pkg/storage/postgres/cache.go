package postgres

import (
	"context"
	"time"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
	"github.com/iLink-CyberShARE/swim-api/pkg/scenarios"
)

const publicListingPrefix = "swim:scenarios:public:"

// ScenarioCache caches public scenario listings in Redis in front of another
// scenarios.Store. Private reads and writes go straight to the store. Redis
// failures fall through to the store.
type ScenarioCache struct {
	scenarios.Store
	redis   *RedisClient
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewScenarioCache wraps store; metrics may be nil
func NewScenarioCache(store scenarios.Store, redis *RedisClient, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *ScenarioCache {
	return &ScenarioCache{
		Store:   store,
		redis:   redis,
		ttl:     ttl,
		logger:  logger.WithField("component", "scenario_cache"),
		metrics: metrics,
	}
}

// ListPublic serves public listings from Redis when present
func (c *ScenarioCache) ListPublic(ctx context.Context, modelID string) ([]scenarios.Document, error) {
	key := publicListingKey(modelID)

	var cached []scenarios.Document
	hit, err := c.redis.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		c.record("error")
		c.logger.WithError(err).Warn("scenario cache read failed")
	case hit:
		c.record("hit")
		return cached, nil
	default:
		c.record("miss")
	}

	docs, err := c.Store.ListPublic(ctx, modelID)
	if err != nil {
		return nil, err
	}

	if err := c.redis.SetJSON(ctx, key, docs, c.ttl); err != nil {
		c.logger.WithError(err).Warn("scenario cache write failed")
	}
	return docs, nil
}

// Invalidate drops every cached public listing
func (c *ScenarioCache) Invalidate(ctx context.Context) error {
	return c.redis.InvalidatePatterns(ctx, publicListingPrefix+"*")
}

func (c *ScenarioCache) record(result string) {
	if c.metrics != nil {
		c.metrics.ScenarioCacheTotal.WithLabelValues("redis", result).Inc()
	}
}

func publicListingKey(modelID string) string {
	if modelID == "" {
		return publicListingPrefix + "all"
	}
	return publicListingPrefix + "model:" + modelID
}
