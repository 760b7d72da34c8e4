package where

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/where/internal/domain"
)

// Options selects which probes a detection enables. Values combine bitwise.
type Options uint8

const (
	// Continuous keeps asynchronous probes running on their interval.
	Continuous Options = 1 << iota
	// UseNetwork enables the external IP address probe.
	UseNetwork
	// UseLocationServices enables the coarse location probe. Implies UseNetwork.
	UseLocationServices
	// RequestPermission asks for location permission before probing.
	// Implies UseLocationServices.
	RequestPermission

	allOptions = Continuous | UseNetwork | UseLocationServices | RequestPermission
)

var optionNames = []struct {
	opt  Options
	name string
}{
	{Continuous, "continuous"},
	{UseNetwork, "network"},
	{UseLocationServices, "location"},
	{RequestPermission, "permission"},
}

// Normalize returns o with every implied prerequisite set.
func (o Options) Normalize() Options {
	o &= allOptions
	if o.Has(RequestPermission) {
		o |= UseLocationServices
	}
	if o.Has(UseLocationServices) {
		o |= UseNetwork
	}
	return o
}

// Has reports whether every bit of flag is set.
func (o Options) Has(flag Options) bool { return o&flag == flag }

// Enables reports whether a detection with these options probes src.
// Synchronous sources are always probed.
func (o Options) Enables(src domain.SourceKind) bool {
	o = o.Normalize()
	switch src {
	case domain.SourceLocale, domain.SourceCarrier, domain.SourceTimeZone:
		return true
	case domain.SourceIPAddress:
		return o.Has(UseNetwork)
	case domain.SourceLocationServices:
		return o.Has(UseLocationServices)
	default:
		return false
	}
}

// Names returns the text form of each set flag.
func (o Options) Names() []string {
	names := []string{}
	for _, n := range optionNames {
		if o.Has(n.opt) {
			names = append(names, n.name)
		}
	}
	return names
}

func (o Options) String() string {
	names := o.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MarshalJSON encodes the options as a list of names.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Names())
}

// ParseOptions combines option names. Names are case-insensitive; "none"
// and empty names are ignored.
func ParseOptions(names []string) (Options, error) {
	var o Options
next:
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || name == "none" {
			continue
		}
		for _, n := range optionNames {
			if n.name == name {
				o |= n.opt
				continue next
			}
		}
		return 0, fmt.Errorf("unknown detect option %q", raw)
	}
	return o, nil
}
