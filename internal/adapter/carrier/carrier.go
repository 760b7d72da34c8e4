// Package carrier probes the home country of the SIM's mobile network.
package carrier

import (
	"context"
	"fmt"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
)

// SIMReader reports the home network of the inserted SIM as an MCCMNC
// tuple. An empty string means no SIM is present.
type SIMReader interface {
	HomeNetwork(ctx context.Context) (string, error)
}

// StaticSIM is a SIMReader with a fixed MCCMNC.
type StaticSIM string

// HomeNetwork implements SIMReader.
func (s StaticSIM) HomeNetwork(context.Context) (string, error) { return string(s), nil }

// Probe maps the SIM's mobile country code to a region.
type Probe struct {
	sim SIMReader
}

// NewProbe creates a carrier probe backed by sim.
func NewProbe(sim SIMReader) *Probe {
	return &Probe{sim: sim}
}

// Source implements domain.Probe.
func (p *Probe) Source() domain.SourceKind { return domain.SourceCarrier }

// Probe implements domain.Probe. Roaming does not change the result: the
// home network is reported, not the visited one.
func (p *Probe) Probe(ctx context.Context) (domain.Reading, error) {
	mccmnc, err := p.sim.HomeNetwork(ctx)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("read SIM: %w", err)
	}
	if mccmnc == "" {
		return domain.Reading{}, fmt.Errorf("no SIM: %w", domain.ErrNoData)
	}
	code, ok := region.RegionForMCC(mccmnc)
	if !ok {
		return domain.Reading{}, fmt.Errorf("mobile country code %q: %w", mccmnc, domain.ErrUnrecognized)
	}
	return domain.Reading{RegionCode: code}, nil
}
