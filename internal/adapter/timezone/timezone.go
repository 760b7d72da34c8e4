// Package timezone probes the region of the system time zone.
package timezone

import (
	"context"
	"fmt"

	"github.com/thlib/go-timezone-local/tzlocal"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
)

// Probe maps the host's IANA time zone to a region.
type Probe struct {
	override string
	detect   func() (string, error)
}

// NewProbe creates a time zone probe. A non-empty override replaces the
// detected system zone.
func NewProbe(override string) *Probe {
	return &Probe{override: override, detect: tzlocal.RuntimeTZ}
}

// Source implements domain.Probe.
func (p *Probe) Source() domain.SourceKind { return domain.SourceTimeZone }

// Probe implements domain.Probe. The reading carries the principal location
// of the zone when it is a canonical zone name.
func (p *Probe) Probe(_ context.Context) (domain.Reading, error) {
	name := p.override
	if name == "" {
		detected, err := p.detect()
		if err != nil {
			return domain.Reading{}, fmt.Errorf("detect time zone: %v: %w", err, domain.ErrNoData)
		}
		name = detected
	}
	code, ok := region.ForTimeZone(name)
	if !ok {
		return domain.Reading{}, fmt.Errorf("time zone %q has no region: %w", name, domain.ErrNoData)
	}

	reading := domain.Reading{RegionCode: code}
	for _, z := range region.TimeZonesForRegion(code) {
		if z.Name == name {
			c := z.Coordinate
			reading.Coordinate = &c
			break
		}
	}
	return reading, nil
}
