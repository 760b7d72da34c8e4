package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/where/internal/domain"
)

var paris = &domain.Coordinate{Lat: 48.8566, Lon: 2.3522}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  int
}

func (s *stubGeocoder) ReverseGeocode(context.Context, domain.Coordinate) (domain.GeocodingResult, error) {
	s.calls++
	return s.result, s.err
}

func TestParsePermission(t *testing.T) {
	for in, want := range map[string]Permission{
		"granted": PermissionGranted,
		"DENIED":  PermissionDenied,
		"prompt":  PermissionPrompt,
		"":        PermissionPrompt,
	} {
		got, err := ParsePermission(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePermission("maybe")
	require.Error(t, err)
}

func TestPermission_StringMatchesName(t *testing.T) {
	assert.Equal(t, "prompt", PermissionPrompt.String())
	assert.Equal(t, "granted", PermissionGranted.String())
	assert.Equal(t, "denied", PermissionDenied.String())
	for _, p := range []Permission{PermissionPrompt, PermissionGranted, PermissionDenied} {
		got, err := ParsePermission(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestProbe_WithGeocoder(t *testing.T) {
	geo := &stubGeocoder{result: domain.GeocodingResult{RegionCode: "FR", PlaceName: "France"}}
	p := NewProbe(NewStaticLocator(paris, PermissionGranted), geo, time.Minute)

	got, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FR", got.RegionCode)
	require.NotNil(t, got.Coordinate)
	assert.Equal(t, *paris, *got.Coordinate)
	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, domain.SourceLocationServices, p.Source())
	assert.Equal(t, time.Minute, p.Interval())
}

func TestProbe_NearestZoneFallback(t *testing.T) {
	p := NewProbe(NewStaticLocator(paris, PermissionGranted), nil, 0)

	got, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FR", got.RegionCode)
}

func TestProbe_OpenOceanFallback(t *testing.T) {
	p := NewProbe(NewStaticLocator(&domain.Coordinate{Lat: -50, Lon: -120}, PermissionGranted), nil, 0)

	_, err := p.Probe(context.Background())
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestProbe_Failures(t *testing.T) {
	tests := []struct {
		name    string
		locator *StaticLocator
		geo     *stubGeocoder
		wantErr error
	}{
		{"denied", NewStaticLocator(paris, PermissionDenied), &stubGeocoder{}, domain.ErrPermissionDenied},
		{"not requested", NewStaticLocator(paris, PermissionPrompt), &stubGeocoder{}, domain.ErrPermissionDenied},
		{"no fix", NewStaticLocator(nil, PermissionGranted), &stubGeocoder{}, domain.ErrNoData},
		{"geocoder unreachable", NewStaticLocator(paris, PermissionGranted), &stubGeocoder{err: domain.ErrUnreachable}, domain.ErrUnreachable},
		{"no country", NewStaticLocator(paris, PermissionGranted), &stubGeocoder{}, domain.ErrNoData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProbe(tc.locator, tc.geo, 0).Probe(context.Background())
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestProbe_RequestPermission(t *testing.T) {
	locator := NewStaticLocator(paris, PermissionPrompt)
	p := NewProbe(locator, nil, 0)

	require.NoError(t, p.RequestPermission(context.Background()))
	assert.Equal(t, PermissionGranted, locator.Permission())

	_, err := p.Probe(context.Background())
	require.NoError(t, err)

	// Revocation after a grant is reported as permission denied.
	locator.SetPermission(PermissionDenied)
	_, err = p.Probe(context.Background())
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
	require.ErrorIs(t, p.RequestPermission(context.Background()), domain.ErrPermissionDenied)
}
