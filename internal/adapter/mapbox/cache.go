package mapbox

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/lru"
	"github.com/couchcryptid/where/internal/observability"
)

// keyPrecision rounds cache keys to two decimals, about 1 km at the equator.
const keyPrecision = 100

// CachedGeocoder wraps a ReverseGeocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.ReverseGeocoder
	cache   *lru.Cache[string, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.ReverseGeocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   lru.New[string, domain.GeocodingResult](maxEntries),
		metrics: metrics,
	}
}

// ReverseGeocode implements domain.ReverseGeocoder.
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.GeocodingResult, error) {
	key := cacheKey(coord)
	if result, ok := c.cache.Get(key); ok {
		c.metrics.LookupCache.WithLabelValues("geocode", "hit").Inc()
		return result, nil
	}
	c.metrics.LookupCache.WithLabelValues("geocode", "miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, coord)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.RegionCode != "" {
		c.cache.Put(key, result)
	}
	return result, nil
}

func cacheKey(c domain.Coordinate) string {
	round := func(v float64) float64 { return math.Round(v*keyPrecision) / keyPrecision }
	return fmt.Sprintf("%.2f,%.2f", round(c.Lat), round(c.Lon))
}
