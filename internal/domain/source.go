package domain

import (
	"fmt"
	"strings"
)

// SourceKind identifies the subsystem an observation came from. The ordinal
// value is the trust rank: a higher value is more trustworthy.
type SourceKind uint8

// Source kinds in ascending rank order.
const (
	SourceNone SourceKind = iota
	SourceLocale
	SourceCarrier
	SourceIPAddress
	SourceTimeZone
	SourceLocationServices

	sourceCount
)

// SourceCount is the number of slots needed to hold one value per kind,
// including SourceNone.
const SourceCount = int(sourceCount)

var sourceNames = [...]string{
	SourceNone:             "none",
	SourceLocale:           "locale",
	SourceCarrier:          "carrier",
	SourceIPAddress:        "ip_address",
	SourceTimeZone:         "time_zone",
	SourceLocationServices: "location_services",
}

// Sources returns every real source kind in descending rank order.
func Sources() []SourceKind {
	return []SourceKind{
		SourceLocationServices,
		SourceTimeZone,
		SourceIPAddress,
		SourceCarrier,
		SourceLocale,
	}
}

// Rank returns the ordinal trust level of the kind.
func (k SourceKind) Rank() int { return int(k) }

// Valid reports whether k is a real source (not None and in range).
func (k SourceKind) Valid() bool { return k > SourceNone && k < sourceCount }

// Async reports whether probes of this kind complete later rather than inline.
func (k SourceKind) Async() bool {
	return k == SourceIPAddress || k == SourceLocationServices
}

func (k SourceKind) String() string {
	if k < sourceCount {
		return sourceNames[k]
	}
	return fmt.Sprintf("source(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k SourceKind) MarshalText() ([]byte, error) {
	if k >= sourceCount {
		return nil, fmt.Errorf("invalid source kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SourceKind) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseSourceKind parses the text form of a source kind, ignoring case.
// Hyphens are accepted in place of underscores.
func ParseSourceKind(s string) (SourceKind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range sourceNames {
		if n == name {
			return SourceKind(i), nil
		}
	}
	return SourceNone, fmt.Errorf("unknown source kind %q", s)
}
