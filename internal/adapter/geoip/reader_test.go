package geoip

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/where/internal/domain"
)

type fakeDB struct {
	records map[string]*geoip2.Country
	closed  bool
}

func (f *fakeDB) Country(ip net.IP) (*geoip2.Country, error) {
	if rec, ok := f.records[ip.String()]; ok {
		return rec, nil
	}
	if ip.IsPrivate() {
		return nil, errors.New("invalid address")
	}
	return &geoip2.Country{}, nil
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func country(iso, registered string) *geoip2.Country {
	rec := &geoip2.Country{}
	rec.Country.IsoCode = iso
	rec.RegisteredCountry.IsoCode = registered
	return rec
}

func TestReader_LookupCountry(t *testing.T) {
	db := &fakeDB{records: map[string]*geoip2.Country{
		"81.2.69.142": country("GB", "GB"),
		"1.1.1.1":     country("", "AU"),
	}}
	r := &Reader{db: db}
	ctx := context.Background()

	code, err := r.LookupCountry(ctx, netip.MustParseAddr("81.2.69.142"))
	require.NoError(t, err)
	assert.Equal(t, "GB", code)

	code, err = r.LookupCountry(ctx, netip.MustParseAddr("::ffff:81.2.69.142"))
	require.NoError(t, err)
	assert.Equal(t, "GB", code, "v4-mapped addresses are unmapped")

	code, err = r.LookupCountry(ctx, netip.MustParseAddr("1.1.1.1"))
	require.NoError(t, err)
	assert.Equal(t, "AU", code)

	code, err = r.LookupCountry(ctx, netip.MustParseAddr("203.0.113.1"))
	require.NoError(t, err)
	assert.Empty(t, code)

	_, err = r.LookupCountry(ctx, netip.MustParseAddr("10.0.0.1"))
	require.ErrorIs(t, err, domain.ErrNoData)

	require.NoError(t, r.Close())
	assert.True(t, db.closed)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.mmdb")
}
