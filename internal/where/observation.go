package where

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
)

// Observation is an immutable record of a detected region. Values are only
// produced by a [Where]; the zero value is not a valid observation.
type Observation struct {
	source      domain.SourceKind
	regionCode  string
	regionName  string
	timestamp   time.Time
	coordinate  domain.Coordinate
	hasCoord    bool
	approximate bool
	seq         uint64
}

// newObservation panics on an invalid source or an empty region code.
// Reaching either means a caller skipped canonicalization.
func newObservation(src domain.SourceKind, code, name string, ts time.Time, c *domain.Coordinate, seq uint64) Observation {
	if !src.Valid() {
		panic(fmt.Sprintf("where: observation with invalid source %s", src))
	}
	if code == "" {
		panic("where: observation with empty region code")
	}
	o := Observation{
		source:     src,
		regionCode: code,
		regionName: name,
		timestamp:  ts,
		seq:        seq,
	}
	switch {
	case c != nil && c.Valid():
		o.coordinate, o.hasCoord = *c, true
	default:
		if approx, ok := region.ApproximateCoordinate(code); ok {
			o.coordinate, o.hasCoord, o.approximate = approx, true, true
		}
	}
	return o
}

// Source returns the subsystem that produced the observation.
func (o Observation) Source() domain.SourceKind { return o.source }

// RegionCode returns the canonical ISO 3166-1 alpha-2 code.
func (o Observation) RegionCode() string { return o.regionCode }

// RegionName returns the display name of the region.
func (o Observation) RegionName() string { return o.regionName }

// Timestamp returns when the observation was recorded.
func (o Observation) Timestamp() time.Time { return o.timestamp }

// Coordinate returns the observed coordinate, or the approximate coordinate
// of the region's main time zone when the source did not report one.
func (o Observation) Coordinate() (domain.Coordinate, bool) { return o.coordinate, o.hasCoord }

// Approximate reports whether Coordinate was derived from the region rather
// than reported by the source.
func (o Observation) Approximate() bool { return o.approximate }

func (o Observation) String() string {
	return fmt.Sprintf("%s:%s@%s", o.source, o.regionCode, o.timestamp.Format(time.RFC3339))
}

type observationJSON struct {
	Source      domain.SourceKind  `json:"source"`
	RegionCode  string             `json:"region_code"`
	RegionName  string             `json:"region_name"`
	Timestamp   time.Time          `json:"timestamp"`
	Coordinate  *domain.Coordinate `json:"coordinate,omitempty"`
	Approximate bool               `json:"approximate,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.export())
}

// MarshalYAML implements yaml.Marshaler.
func (o Observation) MarshalYAML() (any, error) {
	return map[string]any{
		"source":      o.source.String(),
		"region_code": o.regionCode,
		"region_name": o.regionName,
		"timestamp":   o.timestamp.Format(time.RFC3339Nano),
		"coordinate":  o.coordinateOrNil(),
		"approximate": o.approximate,
	}, nil
}

func (o Observation) export() observationJSON {
	return observationJSON{
		Source:      o.source,
		RegionCode:  o.regionCode,
		RegionName:  o.regionName,
		Timestamp:   o.timestamp,
		Coordinate:  o.coordinateOrNil(),
		Approximate: o.approximate,
	}
}

func (o Observation) coordinateOrNil() *domain.Coordinate {
	if !o.hasCoord {
		return nil
	}
	c := o.coordinate
	return &c
}

// Compare orders observations by quality: source rank first, then
// timestamp. It returns a negative number when a is worse than b, zero when
// they are equivalent, and a positive number when a is better.
func Compare(a, b Observation) int {
	if d := a.source.Rank() - b.source.Rank(); d != 0 {
		return d
	}
	return a.timestamp.Compare(b.timestamp)
}

// Better reports whether a has strictly higher quality than b.
func Better(a, b Observation) bool { return Compare(a, b) > 0 }
