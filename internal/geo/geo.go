package geo

import (
	"math"

	"fleet-tracking-service/internal/models"
)

// MetersPerDegree is the flat-earth scaling shared by every distance, bearing
// and advance computation so that round trips through this package are
// stable.
const MetersPerDegree = 111000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceMeters returns the equirectangular straight-line distance between
// two points.
func DistanceMeters(a, b models.Location) float64 {
	dLat := (b.Lat - a.Lat) * MetersPerDegree
	dLon := (b.Lon - a.Lon) * MetersPerDegree * math.Cos(toRad((a.Lat+b.Lat)/2))
	return math.Hypot(dLat, dLon)
}

// DistanceKm returns DistanceMeters in kilometers.
func DistanceKm(a, b models.Location) float64 {
	return DistanceMeters(a, b) / 1000
}

// BearingDeg returns the heading from one point toward another, measured in
// degrees clockwise from north and normalized to [0, 360). Zero displacement
// yields 0.
func BearingDeg(from, to models.Location) float64 {
	dLat := to.Lat - from.Lat
	dLon := to.Lon - from.Lon
	if dLat == 0 && dLon == 0 {
		return 0
	}
	return NormalizeDeg(math.Atan2(dLon, dLat) * 180 / math.Pi)
}

// Advance moves a point the given distance along a heading.
func Advance(from models.Location, headingDeg, distanceKm float64) models.Location {
	h := toRad(headingDeg)
	northM := distanceKm * 1000 * math.Cos(h)
	eastM := distanceKm * 1000 * math.Sin(h)
	out := models.Location{Lat: from.Lat + northM/MetersPerDegree, Lon: from.Lon}
	// cos(lat) vanishes at the poles
	if c := math.Cos(toRad(from.Lat)); c > 1e-9 {
		out.Lon += eastM / (MetersPerDegree * c)
	}
	return out
}

// NormalizeDeg wraps an angle into [0, 360).
func NormalizeDeg(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}
