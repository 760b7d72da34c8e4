package domain

import (
	"context"
	"errors"
)

// Probe failure taxonomy. Probes wrap these with context; the aggregator
// treats all of them as "no observation" for the probe's source.
var (
	ErrNoData           = errors.New("no data")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnreachable      = errors.New("unreachable")
	ErrUnrecognized     = errors.New("unrecognized")
)

// Reason maps a probe error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrUnrecognized):
		return "unrecognized"
	case errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
