// Package geoip looks up countries in an offline MaxMind database.
package geoip

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"

	"github.com/couchcryptid/where/internal/domain"
)

type countryDB interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// Reader implements ipaddress.CountryLookup over a GeoIP2 or GeoLite2
// Country (or City) database.
type Reader struct {
	db countryDB
}

// Open memory-maps the database at path.
func Open(path string) (*Reader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// LookupCountry implements ipaddress.CountryLookup. Addresses missing from
// the database yield an empty code.
func (r *Reader) LookupCountry(_ context.Context, ip netip.Addr) (string, error) {
	rec, err := r.db.Country(net.IP(ip.Unmap().AsSlice()))
	if err != nil {
		return "", fmt.Errorf("geoip lookup %s: %v: %w", ip, err, domain.ErrNoData)
	}
	if rec.Country.IsoCode != "" {
		return rec.Country.IsoCode, nil
	}
	// Anycast and satellite ranges often only carry the registration country.
	return rec.RegisteredCountry.IsoCode, nil
}

// Close unmaps the database.
func (r *Reader) Close() error {
	return r.db.Close()
}
