// models/geo.go
package models

import (
	"fmt"
	"math"
)

// SRID is the spatial reference system for every stored point (WGS84).
const SRID = 4326

// Boston-area bounding box. Coordinates outside this box never produce a
// stored point even when they are valid globally.
const (
	BostonMinLat = 42.22
	BostonMaxLat = 42.42
	BostonMinLon = -71.19
	BostonMaxLon = -70.99
)

// GeoPoint is a validated WGS84 point.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewGeoPoint validates lat/lon against the global coordinate range and
// returns the point, or (nil, false) when the pair cannot form a valid point.
// Callers that serve a specific metro area apply InBostonBounds on top of this.
func NewGeoPoint(lat, lon float64) (*GeoPoint, bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return nil, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, false
	}
	return &GeoPoint{Lat: lat, Lon: lon}, true
}

// InBostonBounds reports whether the pair falls inside the serviced
// metropolitan bounding box.
func InBostonBounds(lat, lon float64) bool {
	return lat >= BostonMinLat && lat <= BostonMaxLat &&
		lon >= BostonMinLon && lon <= BostonMaxLon
}

// WKT renders the point as well-known text for ST_GeomFromText.
// MySQL POINT WKT is "POINT(lon lat)" under the axis order we store with.
func (p *GeoPoint) WKT() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lon, p.Lat)
}
