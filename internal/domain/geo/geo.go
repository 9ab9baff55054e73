// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/okian/tourguide/internal/domain/model"
)

// StatuteMilesPerNauticalMile converts nautical to statute miles.
const StatuteMilesPerNauticalMile = 1.15077945

// Distance returns the great-circle distance between a and b in statute miles,
// using the spherical law of cosines.
func Distance(a, b model.Coordinate) float64 {
	// acos loses precision near 1, so identical points would come out a few
	// hundred-thousandths of a mile apart.
	if a == b {
		return 0
	}
	lat1 := radians(a.Latitude)
	lon1 := radians(a.Longitude)
	lat2 := radians(b.Latitude)
	lon2 := radians(b.Longitude)

	cos := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(lon1-lon2)
	// Rounding can push cos just outside [-1, 1] for near or antipodal points.
	cos = math.Max(-1, math.Min(1, cos))
	angle := math.Acos(cos)

	nauticalMiles := 60 * degrees(angle)
	return StatuteMilesPerNauticalMile * nauticalMiles
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
