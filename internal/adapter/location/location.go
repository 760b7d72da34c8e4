// Package location probes the region of a coarse, permissioned coordinate.
package location

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
)

// MaxNearestDistanceKM bounds the time zone fallback. A coordinate farther
// than this from every zone's principal location is treated as open water.
const MaxNearestDistanceKM = 1500

// Probe locates the host and reverse geocodes the coordinate to a region.
type Probe struct {
	locator  Locator
	geocoder domain.ReverseGeocoder
	interval time.Duration
}

// NewProbe creates a location probe. Without a geocoder the region of the
// nearest time zone is used.
func NewProbe(locator Locator, geocoder domain.ReverseGeocoder, interval time.Duration) *Probe {
	return &Probe{locator: locator, geocoder: geocoder, interval: interval}
}

// Source implements domain.Probe.
func (p *Probe) Source() domain.SourceKind { return domain.SourceLocationServices }

// Interval implements domain.AsyncProbe.
func (p *Probe) Interval() time.Duration { return p.interval }

// RequestPermission implements domain.PermissionRequester.
func (p *Probe) RequestPermission(ctx context.Context) error {
	perm, err := p.locator.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("request location permission: %w", err)
	}
	if perm != PermissionGranted {
		return fmt.Errorf("location permission %s: %w", perm, domain.ErrPermissionDenied)
	}
	return nil
}

// Probe implements domain.Probe.
func (p *Probe) Probe(ctx context.Context) (domain.Reading, error) {
	if perm := p.locator.Permission(); perm != PermissionGranted {
		return domain.Reading{}, fmt.Errorf("location permission %s: %w", perm, domain.ErrPermissionDenied)
	}
	coord, err := p.locator.Locate(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("locate: %w", err)
	}
	if !coord.Valid() {
		return domain.Reading{}, fmt.Errorf("locate: invalid coordinate %v: %w", coord, domain.ErrNoData)
	}

	code, err := p.resolve(ctx, coord)
	if err != nil {
		return domain.Reading{}, err
	}
	return domain.Reading{RegionCode: code, Coordinate: &coord}, nil
}

func (p *Probe) resolve(ctx context.Context, coord domain.Coordinate) (string, error) {
	if p.geocoder == nil {
		zone, dist := region.Nearest(coord)
		if dist > MaxNearestDistanceKM {
			return "", fmt.Errorf("no time zone within %d km: %w", MaxNearestDistanceKM, domain.ErrNoData)
		}
		return zone.Region, nil
	}

	res, err := p.geocoder.ReverseGeocode(ctx, coord)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if res.RegionCode == "" {
		return "", fmt.Errorf("reverse geocode: no country at %.2f,%.2f: %w", coord.Lat, coord.Lon, domain.ErrNoData)
	}
	return res.RegionCode, nil
}
