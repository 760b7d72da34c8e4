package ipaddress

import (
	"context"
	"net/netip"

	"github.com/couchcryptid/where/internal/lru"
	"github.com/couchcryptid/where/internal/observability"
)

// CachedLookup wraps a CountryLookup with an in-memory LRU cache.
type CachedLookup struct {
	inner   CountryLookup
	cache   *lru.Cache[netip.Addr, string]
	metrics *observability.Metrics
}

// NewCachedLookup creates a cache decorator around a country lookup.
func NewCachedLookup(inner CountryLookup, maxEntries int, metrics *observability.Metrics) *CachedLookup {
	return &CachedLookup{
		inner:   inner,
		cache:   lru.New[netip.Addr, string](maxEntries),
		metrics: metrics,
	}
}

// LookupCountry implements CountryLookup.
func (c *CachedLookup) LookupCountry(ctx context.Context, ip netip.Addr) (string, error) {
	if code, ok := c.cache.Get(ip); ok {
		c.metrics.LookupCache.WithLabelValues("ip", "hit").Inc()
		return code, nil
	}
	c.metrics.LookupCache.WithLabelValues("ip", "miss").Inc()

	code, err := c.inner.LookupCountry(ctx, ip)
	if err != nil {
		return code, err
	}
	// Only cache non-empty results so "no country" answers can be retried.
	if code != "" {
		c.cache.Put(ip, code)
	}
	return code, nil
}
