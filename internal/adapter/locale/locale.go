// Package locale probes the region named by the process locale.
package locale

import (
	"context"
	"fmt"
	"os"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
)

// Environment variables consulted, highest precedence first.
var envKeys = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// Probe reads the region subtag of the user's preferred locale.
type Probe struct {
	override string
	getenv   func(string) string
}

// NewProbe creates a locale probe. A non-empty override replaces the
// environment.
func NewProbe(override string) *Probe {
	return &Probe{override: override, getenv: os.Getenv}
}

// Source implements domain.Probe.
func (p *Probe) Source() domain.SourceKind { return domain.SourceLocale }

// Probe implements domain.Probe.
func (p *Probe) Probe(_ context.Context) (domain.Reading, error) {
	name := p.override
	if name == "" {
		name = Current(p.getenv)
	}
	if name == "" {
		return domain.Reading{}, fmt.Errorf("locale not set: %w", domain.ErrNoData)
	}
	code := region.FromLocale(name)
	if code == "" {
		return domain.Reading{}, fmt.Errorf("locale %q has no region: %w", name, domain.ErrNoData)
	}
	return domain.Reading{RegionCode: code}, nil
}

// Current returns the effective messages locale by POSIX precedence.
func Current(getenv func(string) string) string {
	for _, k := range envKeys {
		if v := getenv(k); v != "" {
			return v
		}
	}
	return ""
}
