package geo

import "math"

// Transform is the placement of an object on the globe.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Quat `json:"rotation"`
}

// CoordinateToPoint maps a coordinate onto a sphere of the given radius.
func CoordinateToPoint(c Coordinate, radius float64) Vec3 {
	lat := radians(c.Latitude)
	lon := radians(c.Longitude)

	y := math.Sin(lat)
	r := math.Cos(lat) // radius of the circle cut through the sphere at y
	x := math.Sin(lon) * r
	z := -math.Cos(lon) * r

	return Vec3{x, y, z}.Scale(radius)
}

// PointToCoordinate is the inverse of CoordinateToPoint for a point on the
// unit sphere. p must already be normalized; other inputs give garbage.
func PointToCoordinate(p Vec3) Coordinate {
	return Coordinate{
		Longitude: degrees(math.Atan2(p.X, -p.Z)),
		Latitude:  degrees(math.Asin(p.Y)),
	}
}

// Reproject places c on a sphere of the given radius and reads the coordinate
// back from the normalized point.
func Reproject(c Coordinate, radius float64) Coordinate {
	return PointToCoordinate(CoordinateToPoint(c, radius).Normalize())
}

// OrientationForHeading returns the rotation for an object sitting at
// position. The object's local +Z becomes the outward surface normal and its
// local +Y (the nose) points along the meridian toward the north pole; the
// nose is then turned by heading degrees toward east, so 90 points along
// increasing longitude. Longitude grows to the left of north when the sphere
// is seen from outside, hence the positive yaw about the normal.
func OrientationForHeading(position Vec3, heading float64) Quat {
	normal := position.Normalize()
	return QuatFromAxisAngle(normal, radians(heading)).Mul(surfaceFrame(normal))
}

// surfaceFrame is the heading-0 rotation at the point with outward normal n.
func surfaceFrame(n Vec3) Quat {
	right := AxisY.Cross(n)
	if right.Length() < 1e-9 {
		// At the poles every meridian points at the pole; pick a fixed one.
		right = AxisX
	}
	right = right.Normalize()
	nose := n.Cross(right)
	return QuatFromBasis(right, nose, n)
}

// TransformAt combines CoordinateToPoint and OrientationForHeading.
func TransformAt(c Coordinate, radius, heading float64) Transform {
	pos := CoordinateToPoint(c, radius)
	return Transform{Position: pos, Rotation: OrientationForHeading(pos, heading)}
}
