// Package probes builds the configured set of region probes.
package probes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/where/internal/adapter/carrier"
	"github.com/couchcryptid/where/internal/adapter/dnsip"
	"github.com/couchcryptid/where/internal/adapter/geoip"
	"github.com/couchcryptid/where/internal/adapter/ipaddress"
	"github.com/couchcryptid/where/internal/adapter/ipapi"
	"github.com/couchcryptid/where/internal/adapter/locale"
	"github.com/couchcryptid/where/internal/adapter/location"
	"github.com/couchcryptid/where/internal/adapter/mapbox"
	"github.com/couchcryptid/where/internal/adapter/timezone"
	"github.com/couchcryptid/where/internal/config"
	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
	"github.com/couchcryptid/where/internal/where"
)

// Set is the result of Build. Close releases resources held by the probes.
type Set struct {
	Probes      []domain.Probe
	AsyncProbes []domain.AsyncProbe
	// Locator backs the location services probe.
	Locator *location.StaticLocator

	closers []io.Closer
}

// Build constructs every probe the config enables.
func Build(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Set, error) {
	s := &Set{
		Probes: []domain.Probe{
			locale.NewProbe(cfg.LocaleOverride),
			carrier.NewProbe(carrier.StaticSIM(cfg.CarrierMCCMNC)),
			timezone.NewProbe(cfg.TimeZoneOverride),
		},
	}

	ipProbe, err := s.buildIPProbe(cfg, metrics, logger)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if ipProbe != nil {
		s.AsyncProbes = append(s.AsyncProbes, ipProbe)
	}

	perm, err := location.ParsePermission(cfg.LocationPermission)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	var coord *domain.Coordinate
	if cfg.LocationSet {
		coord = &domain.Coordinate{Lat: cfg.LocationLat, Lon: cfg.LocationLon}
	}
	s.Locator = location.NewStaticLocator(coord, perm)

	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox reverse geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox reverse geocoding disabled, using nearest time zone")
	}
	s.AsyncProbes = append(s.AsyncProbes, location.NewProbe(s.Locator, geocoder, cfg.UpdateInterval))

	return s, nil
}

func (s *Set) buildIPProbe(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*ipaddress.Probe, error) {
	if cfg.IPLookup == config.IPLookupNone {
		logger.Info("ip address probe disabled")
		return nil, nil
	}

	var webservice *ipapi.Client
	webserviceClient := func() *ipapi.Client {
		if webservice == nil {
			webservice = ipapi.NewClient(cfg.IPAPIURL, cfg.IPAPITimeout, cfg.IPAPIRequestsPerMinute, metrics, logger)
		}
		return webservice
	}

	var lookup ipaddress.CountryLookup
	switch cfg.IPLookup {
	case config.IPLookupGeoIP:
		reader, err := geoip.Open(cfg.GeoIPDBPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, reader)
		lookup = reader
	case config.IPLookupWebservice:
		lookup = webserviceClient()
	default:
		return nil, fmt.Errorf("unknown ip lookup %q", cfg.IPLookup)
	}

	var discoverer ipaddress.IPDiscoverer
	switch cfg.IPDiscovery {
	case config.IPDiscoveryDNS:
		discoverer = dnsip.NewResolver(cfg.DNSResolver, cfg.IPAPITimeout, metrics)
	default:
		discoverer = webserviceClient()
	}

	logger.Info("ip address probe enabled", "lookup", cfg.IPLookup, "discovery", cfg.IPDiscovery, "cache_size", cfg.IPCacheSize)
	return ipaddress.NewProbe(discoverer, ipaddress.NewCachedLookup(lookup, cfg.IPCacheSize, metrics), cfg.UpdateInterval), nil
}

// Close releases databases opened by Build.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// DetectOptions parses the configured detect options.
func DetectOptions(cfg *config.Config) (where.Options, error) {
	return where.ParseOptions(cfg.DetectOptions)
}
