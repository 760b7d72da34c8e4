package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("no SIM: %w", ErrNoData), "no_data"},
		{fmt.Errorf("locator: %w", ErrPermissionDenied), "permission_denied"},
		{fmt.Errorf("ipapi: %w: status 503", ErrUnreachable), "unreachable"},
		{fmt.Errorf("mcc 999: %w", ErrUnrecognized), "unrecognized"},
		{context.DeadlineExceeded, "canceled"},
		{fmt.Errorf("ipapi request: %w: %w", context.Canceled, ErrUnreachable), "canceled"},
		{fmt.Errorf("lookup: %w: %w", ErrNoData, context.Canceled), "canceled"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Reason(tc.err))
	}
}

func TestCoordinate_DistanceKM(t *testing.T) {
	paris := Coordinate{Lat: 48.8566, Lon: 2.3522}
	berlin := Coordinate{Lat: 52.52, Lon: 13.405}

	assert.InDelta(t, 878, paris.DistanceKM(berlin), 10)
	assert.InDelta(t, 0, paris.DistanceKM(paris), 1e-9)
	assert.True(t, paris.Valid())
	assert.False(t, Coordinate{Lat: 91}.Valid())
}
