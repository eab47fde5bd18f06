// Package geo holds the spherical-earth math used to place tracked aircraft
// on the globe: coordinate/point conversion, heading orientation and a few
// great-circle helpers.
package geo

import (
	"math"
)

// EarthRadiusMeters is the mean earth radius used by the great-circle helpers.
const EarthRadiusMeters = 6371000

// Coordinate is a geographic position in degrees.
// Longitude is in (-180, 180], latitude in [-90, 90].
type Coordinate struct {
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
}

func radians(deg float64) float64 { return deg * (math.Pi / 180.0) }
func degrees(rad float64) float64 { return rad * (180.0 / math.Pi) }

// Distance calculates the Haversine distance between two coordinates in meters.
func Distance(c1, c2 Coordinate) float64 {
	dLat := radians(c2.Latitude - c1.Latitude)
	dLon := radians(c2.Longitude - c1.Longitude)
	lat1 := radians(c1.Latitude)
	lat2 := radians(c2.Latitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DestinationPoint returns the coordinate reached from start after travelling
// distMeters along the great circle with the given initial bearing (degrees).
func DestinationPoint(start Coordinate, distMeters, bearing float64) Coordinate {
	lat1 := radians(start.Latitude)
	lon1 := radians(start.Longitude)
	brng := radians(bearing)
	ang := distMeters / EarthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) +
		math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(ang)*math.Cos(lat1),
		math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return Coordinate{
		Latitude:  degrees(lat2),
		Longitude: NormalizeAngle(degrees(lon2)),
	}
}

// Bearing calculates the initial bearing (forward azimuth) from c1 to c2 in degrees.
func Bearing(c1, c2 Coordinate) float64 {
	lat1 := radians(c1.Latitude)
	lat2 := radians(c2.Latitude)
	dLon := radians(c2.Longitude - c1.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return math.Mod(degrees(math.Atan2(y, x))+360.0, 360.0)
}

// NormalizeAngle normalizes an angle to the range (-180, 180].
func NormalizeAngle(angleDeg float64) float64 {
	for angleDeg > 180 {
		angleDeg -= 360
	}
	for angleDeg <= -180 {
		angleDeg += 360
	}
	return angleDeg
}
