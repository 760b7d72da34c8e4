package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceKind_RankOrder(t *testing.T) {
	ordered := []SourceKind{
		SourceNone,
		SourceLocale,
		SourceCarrier,
		SourceIPAddress,
		SourceTimeZone,
		SourceLocationServices,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(), "%s should outrank %s", ordered[i], ordered[i-1])
	}
}

func TestSources_DescendingAndValid(t *testing.T) {
	sources := Sources()
	require.Len(t, sources, SourceCount-1)
	for i, s := range sources {
		assert.True(t, s.Valid())
		if i > 0 {
			assert.Less(t, s.Rank(), sources[i-1].Rank())
		}
	}
	assert.False(t, SourceNone.Valid())
	assert.False(t, SourceKind(200).Valid())
}

func TestParseSourceKind(t *testing.T) {
	tests := []struct {
		in   string
		want SourceKind
	}{
		{"locale", SourceLocale},
		{"Carrier", SourceCarrier},
		{"ip_address", SourceIPAddress},
		{"time-zone", SourceTimeZone},
		{" LOCATION_SERVICES ", SourceLocationServices},
		{"none", SourceNone},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSourceKind(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseSourceKind("gps")
	require.Error(t, err)
}

func TestSourceKind_JSONText(t *testing.T) {
	data, err := json.Marshal(map[string]SourceKind{"source": SourceTimeZone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"time_zone"}`, string(data))

	var decoded struct {
		Source SourceKind `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"source":"carrier"}`), &decoded))
	assert.Equal(t, SourceCarrier, decoded.Source)

	_, err = SourceKind(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "source(42)", SourceKind(42).String())
}

func TestSourceKind_Async(t *testing.T) {
	assert.True(t, SourceIPAddress.Async())
	assert.True(t, SourceLocationServices.Async())
	assert.False(t, SourceLocale.Async())
	assert.False(t, SourceCarrier.Async())
	assert.False(t, SourceTimeZone.Async())
}
