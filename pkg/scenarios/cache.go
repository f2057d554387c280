package scenarios

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// DocumentCache keeps recently resolved public scenarios in memory.
// Private scenarios are never cached.
type DocumentCache struct {
	cache   *lru.LRU[string, Document]
	metrics *observability.Metrics
}

// NewDocumentCache creates a cache of at most size entries that expire after ttl
func NewDocumentCache(size int, ttl time.Duration, metrics *observability.Metrics) *DocumentCache {
	if size < 1 {
		size = 1
	}
	return &DocumentCache{
		cache:   lru.NewLRU[string, Document](size, nil, ttl),
		metrics: metrics,
	}
}

// Get returns a copy of the cached document for id
func (c *DocumentCache) Get(id string) (Document, bool) {
	doc, ok := c.cache.Get(id)
	if !ok {
		c.record("miss")
		return nil, false
	}
	c.record("hit")
	return clone(doc), true
}

// Add caches doc under id
func (c *DocumentCache) Add(id string, doc Document) {
	c.cache.Add(id, clone(doc))
}

// Len returns the number of cached documents
func (c *DocumentCache) Len() int {
	return c.cache.Len()
}

func (c *DocumentCache) record(result string) {
	if c.metrics != nil {
		c.metrics.ScenarioCacheTotal.WithLabelValues("memory", result).Inc()
	}
}
