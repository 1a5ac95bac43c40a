// Package geo holds the spherical distance helpers used when ranking facilities.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// DistanceKm returns the great-circle (haversine) distance between a and b.
func DistanceKm(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Lat))*math.Cos(degreesToRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// clamp rounding noise so antipodal points stay finite
	h = math.Min(1, math.Max(0, h))

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
