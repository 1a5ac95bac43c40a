package providers

import (
	"context"
)

// FacilityLocator finds medical points of interest around a location
type FacilityLocator interface {
	// FindNearby returns raw map elements within radiusMeters of center.
	// A response without an element list yields an empty slice and no error.
	FindNearby(ctx context.Context, center LatLng, radiusMeters int) ([]MapElement, error)
}

// LatLng is a query coordinate pair in degrees
type LatLng struct {
	Lat float64
	Lon float64
}

// Centroid is the optional centre reported for ways and relations
type Centroid struct {
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// MapElement is one node, way or relation returned by a map query.
// Nodes carry Lat/Lon directly; ways and relations carry a Center.
type MapElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Centroid         `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Position resolves the element coordinates. ok is false when they are missing.
func (e MapElement) Position() (lat, lon float64, ok bool) {
	if e.Type == "node" {
		if e.Lat == nil || e.Lon == nil {
			return 0, 0, false
		}
		return *e.Lat, *e.Lon, true
	}
	if e.Center == nil || e.Center.Lat == nil || e.Center.Lon == nil {
		return 0, 0, false
	}
	return *e.Center.Lat, *e.Center.Lon, true
}
