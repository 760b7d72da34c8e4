// Package ipaddress probes the country of the host's external IP address.
package ipaddress

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/couchcryptid/where/internal/domain"
)

// IPDiscoverer finds the address the host appears from on the internet.
type IPDiscoverer interface {
	ExternalIP(ctx context.Context) (netip.Addr, error)
}

// CountryLookup resolves an address to a region code. An empty code with a
// nil error means the address is not associated with a country.
type CountryLookup interface {
	LookupCountry(ctx context.Context, ip netip.Addr) (string, error)
}

// Probe discovers the external address and geolocates it.
type Probe struct {
	discoverer IPDiscoverer
	lookup     CountryLookup
	interval   time.Duration
}

// NewProbe creates an IP address probe. interval is the period between
// runs during continuous updates.
func NewProbe(d IPDiscoverer, l CountryLookup, interval time.Duration) *Probe {
	return &Probe{discoverer: d, lookup: l, interval: interval}
}

// Source implements domain.Probe.
func (p *Probe) Source() domain.SourceKind { return domain.SourceIPAddress }

// Interval implements domain.AsyncProbe.
func (p *Probe) Interval() time.Duration { return p.interval }

// Probe implements domain.Probe.
func (p *Probe) Probe(ctx context.Context) (domain.Reading, error) {
	ip, err := p.discoverer.ExternalIP(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("discover external ip: %w", err)
	}
	code, err := p.lookup.LookupCountry(ctx, ip)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("lookup %s: %w", ip, err)
	}
	if code == "" {
		return domain.Reading{}, fmt.Errorf("lookup %s: no country: %w", ip, domain.ErrNoData)
	}
	return domain.Reading{RegionCode: code}, nil
}
