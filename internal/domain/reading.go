package domain

import "math"

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

const earthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance between two coordinates.
func (c Coordinate) DistanceKM(o Coordinate) float64 {
	lat1, lat2 := c.Lat*math.Pi/180, o.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (o.Lon - c.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Reading is the raw result of a successful probe: a region code as the
// subsystem reported it, and a coordinate when the subsystem knows one.
// The aggregator canonicalizes and timestamps it.
type Reading struct {
	RegionCode string
	Coordinate *Coordinate
}
