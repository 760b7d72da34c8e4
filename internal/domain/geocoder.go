package domain

import "context"

// GeocodingResult contains the country-level result of a reverse geocode.
type GeocodingResult struct {
	RegionCode string
	PlaceName  string
	Confidence float64 // 0.0–1.0 provider confidence score
}

// ReverseGeocoder resolves a coordinate to the region containing it.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinate) (GeocodingResult, error)
}
