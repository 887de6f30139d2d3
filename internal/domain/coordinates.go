package domain

import (
	"math"
	"strings"
)

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Location is an address together with its resolved coordinates.
// Travel providers may use either the address or the coordinates.
type Location struct {
	Address string
	Coords  Coordinates
}

// NormalizeAddress collapses whitespace so equivalent addresses share a cache key.
func NormalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const earthRadiusMiles = 3958.8

// MilesBetween is the great-circle distance between a and b.
func MilesBetween(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
