package spatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// HaversineKm calculates the great-circle distance between two points
// in kilometers using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// HaversineMeters calculates the great-circle distance between two
// points in meters.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineKm(lat1, lng1, lat2, lng2) * 1000
}

// TripDistanceKm returns the straight-line distance of a trip between
// its start and end coordinates. Returns NaN when any coordinate is
// missing.
func TripDistanceKm(startLat, startLng, endLat, endLng float64) float64 {
	if math.IsNaN(startLat) || math.IsNaN(startLng) || math.IsNaN(endLat) || math.IsNaN(endLng) {
		return math.NaN()
	}
	return HaversineKm(startLat, startLng, endLat, endLng)
}
