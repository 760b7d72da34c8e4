package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/region"
	"github.com/couchcryptid/where/internal/where"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "JSON", "yaml"} {
		_, err := parseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := parseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatText, nil))
	assert.Equal(t, "region unknown\n", buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, formatJSON, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestRenderZones(t *testing.T) {
	zl := zoneList{
		Region:    "DE",
		Name:      region.DisplayName("DE", "en"),
		TimeZones: region.TimeZonesForRegion("DE"),
	}

	var buf bytes.Buffer
	require.NoError(t, renderZones(&buf, formatText, zl))
	assert.Contains(t, buf.String(), "Germany (DE)")
	assert.Contains(t, buf.String(), "Europe/Berlin")

	buf.Reset()
	require.NoError(t, renderZones(&buf, formatYAML, zl))
	var decoded struct {
		Region    string `yaml:"region"`
		TimeZones []struct {
			Name string `yaml:"name"`
		} `yaml:"time_zones"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "DE", decoded.Region)
	require.NotEmpty(t, decoded.TimeZones)
	assert.Equal(t, "Europe/Berlin", decoded.TimeZones[0].Name)
}

func TestRenderChange_Removal(t *testing.T) {
	at := time.Date(2026, time.May, 4, 8, 0, 0, 0, time.UTC)
	c := where.Change{Source: domain.SourceIPAddress, At: at}

	var buf bytes.Buffer
	require.NoError(t, renderChange(&buf, formatText, c))
	assert.Equal(t, "2026-05-04T08:00:00Z ip_address removed\n", buf.String())

	buf.Reset()
	require.NoError(t, renderChange(&buf, formatJSON, c))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "ip_address", got["source"])
	assert.Equal(t, true, got["removed"])
	assert.NotContains(t, got, "observation")
}

func TestFlagOptions_PermissionImpliesLocation(t *testing.T) {
	t.Cleanup(func() { permissionFlag = false })
	permissionFlag = true
	opts := flagOptions()
	assert.True(t, opts.Has(where.UseLocationServices))
	assert.True(t, opts.Has(where.RequestPermission))
	assert.True(t, opts.Has(where.UseNetwork))
}
