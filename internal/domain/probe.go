package domain

import (
	"context"
	"time"
)

// Probe attempts to produce a region reading for one source kind.
// Absence of data is reported as an error wrapping one of the sentinel
// errors, never as an empty Reading.
type Probe interface {
	Source() SourceKind
	Probe(ctx context.Context) (Reading, error)
}

// AsyncProbe is a Probe that is slow (network, sensors) and is run off the
// caller's goroutine. Interval is the period between runs when continuous
// updates are enabled; zero means the aggregator default.
type AsyncProbe interface {
	Probe
	Interval() time.Duration
}

// PermissionRequester is implemented by probes gated on user permission.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}
