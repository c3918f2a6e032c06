// Package geo provides coordinate validation and great-circle distance
// computation on a spherical Earth model.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

var (
	// ErrNotNumeric indicates a latitude or longitude that is NaN or infinite.
	ErrNotNumeric = errors.New("coordinate is not a finite number")
	// ErrOutOfRange indicates a latitude outside [-90, 90] or a longitude
	// outside [-180, 180].
	ErrOutOfRange = errors.New("coordinate out of range")
)

// Coordinate is an immutable latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// New validates lat/lng and returns a Coordinate. Invalid values never
// become Coordinates; callers downstream can assume the ranges hold.
func New(lat, lng float64) (Coordinate, error) {
	if !isFinite(lat) || !isFinite(lng) {
		return Coordinate{}, ErrNotNumeric
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, ErrOutOfRange
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// DistanceMeters computes the great-circle distance between two validated
// coordinates using the haversine formula. Symmetric, zero for identical
// points, and stable for antipodal and near-coincident inputs.
func DistanceMeters(a, b Coordinate) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lng - a.Lng)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Floating-point rounding can push h a hair outside [0, 1] for
	// antipodal points, which would make Sqrt(1-h) NaN.
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Round2 rounds a distance to two decimal places for reporting. Membership
// decisions must compare the unrounded value.
func Round2(meters float64) float64 {
	return math.Round(meters*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
