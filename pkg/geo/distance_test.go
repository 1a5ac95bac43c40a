package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	p := Point{Lat: 40.7128, Lng: -74.0060}
	assert.Equal(t, 0.0, Round(DistanceKm(p, p), 2))
}

func TestDistanceKm_SymmetricAndNonNegative(t *testing.T) {
	points := []Point{
		{Lat: 40.7128, Lng: -74.0060},
		{Lat: 51.5074, Lng: -0.1278},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 180},
	}

	for _, a := range points {
		for _, b := range points {
			ab := DistanceKm(a, b)
			ba := DistanceKm(b, a)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.InDelta(t, ab, ba, 1e-9)
		}
	}
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	nyc := Point{Lat: 40.7128, Lng: -74.0060}
	london := Point{Lat: 51.5074, Lng: -0.1278}

	// ~5570 km on a 6371 km sphere
	assert.InDelta(t, 5570, DistanceKm(nyc, london), 10)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 1.24, Round(1.236, 2))
	assert.Equal(t, 0.0, Round(0.004, 2))
}
