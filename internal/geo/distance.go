package geo

import (
	"math"

	"github.com/pricelens/backend/internal/domain"
)

const (
	// earthRadiusKm is the mean Earth radius used by the Haversine formula
	earthRadiusKm = 6371.0

	// kmPerDegreeLat is the approximate length of one degree of latitude
	kmPerDegreeLat = 111.32

	// minCosLat bounds the latitude cosine away from zero so the
	// bounding-box longitude delta stays finite near the poles. The flat
	// approximation is meaningless that close to a pole anyway; clamping
	// just widens the box, which the exact distance check corrects.
	minCosLat = 1e-6
)

// DistanceKm computes the great-circle distance between two points
// using the Haversine formula. Symmetric, non-negative, zero for
// identical points (within floating-point epsilon).
func DistanceKm(a, b domain.GeoPoint) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox converts a center and radius into a lat/lng rectangle
// that fully contains the circle of that radius. It is a flat-Earth
// approximation used only as a cheap pre-filter; callers must still
// apply the exact DistanceKm check.
func BoundingBox(center domain.GeoPoint, radiusKm float64) domain.BoundingBox {
	latDelta := radiusKm / kmPerDegreeLat

	cosLat := math.Cos(toRadians(center.Latitude))
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	lngDelta := radiusKm / (kmPerDegreeLat * cosLat)

	return domain.BoundingBox{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLng: center.Longitude - lngDelta,
		MaxLng: center.Longitude + lngDelta,
	}
}

// ValidPoint reports whether a point lies within valid WGS84 ranges.
func ValidPoint(p domain.GeoPoint) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
