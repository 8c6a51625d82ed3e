package discovery

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// cache memoizes discovery results per unit key. Entries are published once
// and never modified; concurrent misses on one key share a single analysis.
type cache struct {
	mu      sync.RWMutex
	entries map[string]*core.DiscoveryResult
	group   singleflight.Group
}

func newCache() *cache {
	return &cache{entries: make(map[string]*core.DiscoveryResult)}
}

func (c *cache) get(key string) (*core.DiscoveryResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// getOrCompute returns the cached result for key, running compute on a miss.
// Failed computations are not cached.
func (c *cache) getOrCompute(key string, compute func() (*core.DiscoveryResult, error)) (*core.DiscoveryResult, bool, error) {
	if r, ok := c.get(key); ok {
		return r, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Double-check after winning the flight
		if r, ok := c.get(key); ok {
			return r, nil
		}
		r, err := compute()
		if err != nil {
			return nil, err
		}
		return c.publish(key, r), nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*core.DiscoveryResult), false, nil
}

// publish stores r unless another writer got there first, and returns the
// stored entry.
func (c *cache) publish(key string, r *core.DiscoveryResult) *core.DiscoveryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing
	}
	c.entries[key] = r
	return r
}

func (c *cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*core.DiscoveryResult)
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
