package where

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/where/internal/domain"
)

func TestOptions_Normalize(t *testing.T) {
	tests := []struct {
		in   Options
		want Options
	}{
		{0, 0},
		{Continuous, Continuous},
		{UseNetwork, UseNetwork},
		{UseLocationServices, UseLocationServices | UseNetwork},
		{RequestPermission, RequestPermission | UseLocationServices | UseNetwork},
		{Continuous | RequestPermission, Continuous | RequestPermission | UseLocationServices | UseNetwork},
		{0xF0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.in.String(), func(t *testing.T) {
			got := tc.in.Normalize()
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, got.Normalize(), "normalize is idempotent")
		})
	}
}

func TestOptions_Enables(t *testing.T) {
	for _, src := range []domain.SourceKind{domain.SourceLocale, domain.SourceCarrier, domain.SourceTimeZone} {
		assert.True(t, Options(0).Enables(src), src.String())
	}
	assert.False(t, Options(0).Enables(domain.SourceIPAddress))
	assert.True(t, UseNetwork.Enables(domain.SourceIPAddress))
	assert.False(t, UseNetwork.Enables(domain.SourceLocationServices))
	assert.True(t, RequestPermission.Enables(domain.SourceIPAddress))
	assert.True(t, RequestPermission.Enables(domain.SourceLocationServices))
	assert.False(t, allOptions.Enables(domain.SourceNone))
}

func TestParseOptions(t *testing.T) {
	got, err := ParseOptions([]string{"Continuous", " network ", "", "none"})
	require.NoError(t, err)
	assert.Equal(t, Continuous|UseNetwork, got)

	got, err = ParseOptions(nil)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = ParseOptions([]string{"gps"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gps")
}

func TestOptions_TextForms(t *testing.T) {
	o := RequestPermission.Normalize()
	assert.Equal(t, "network|location|permission", o.String())
	assert.Equal(t, "none", Options(0).String())

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `["network","location","permission"]`, string(data))

	data, err = json.Marshal(Options(0))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}
