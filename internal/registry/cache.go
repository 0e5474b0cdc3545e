package registry

import (
	"log/slog"
	"sync"

	"github.com/edustack/ai-service/internal/metrics"
)

// BundleCache memoises fully-loaded bundles per "{name}:{version}" key. It is
// explicitly constructed and injectable so tests can run isolated caches.
// There is no eviction and no invalidation: replacing artifacts for an
// already-served key requires a process restart, an accepted tradeoff for a
// service with rare, out-of-band model redeploys.
type BundleCache struct {
	store  *Store
	logger *slog.Logger

	mu      sync.RWMutex
	bundles map[string]*Bundle
}

// NewBundleCache wraps a store with process-wide memoisation.
func NewBundleCache(store *Store, logger *slog.Logger) *BundleCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &BundleCache{
		store:   store,
		logger:  logger,
		bundles: make(map[string]*Bundle),
	}
}

// GetOrLoad returns the cached bundle or loads it from the store. Loads run
// outside the lock; a duplicate concurrent load only wastes one redundant
// disk read because bundle loading is idempotent.
func (c *BundleCache) GetOrLoad(name, version string) (*Bundle, error) {
	key := name + ":" + version

	c.mu.RLock()
	bundle, ok := c.bundles[key]
	c.mu.RUnlock()
	if ok {
		c.logger.Debug("bundle cache hit", slog.String("key", key))
		return bundle, nil
	}

	bundle, err := c.store.LoadBundle(name, version)
	if err != nil {
		metrics.ObserveBundleLoad(metrics.OutcomeError)
		return nil, err
	}
	metrics.ObserveBundleLoad(metrics.OutcomeSuccess)

	c.mu.Lock()
	if existing, ok := c.bundles[key]; ok {
		bundle = existing
	} else {
		c.bundles[key] = bundle
	}
	c.mu.Unlock()
	return bundle, nil
}

// Len reports how many bundles are cached (used by tests).
func (c *BundleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bundles)
}
