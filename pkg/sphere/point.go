// Package sphere models points on a unit sphere as an approximation of
// Earth. GTFS specifies WGS84 coordinates; for comparing and matching
// latitudes and longitudes that are close together on the surface, a
// sphere is adequate.
package sphere

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the radius of the spherical Earth model.
const EarthRadiusMeters = 6371010.0

const (
	// unitLengthTolerance bounds |norm - 1| for a point to count as unit
	// length. Tighter than equalityTolerance: unit length is a hard
	// geometric invariant, equality is a matching heuristic.
	unitLengthTolerance = 1e-14

	// equalityTolerance is the componentwise tolerance for Equals.
	equalityTolerance = 1e-11

	// degeneracyThreshold is the componentwise cutoff below which a raw
	// cross product of two unit vectors is considered unstable.
	degeneracyThreshold = 1e-15
)

// Point is a vector from the center of the unit sphere, in three
// dimensions. Points are immutable values; every operation returns a
// new Point.
type Point struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// IsUnitLength reports whether p lies on the unit sphere.
func (p Point) IsUnitLength() bool {
	return math.Abs(p.Norm()-1.0) < unitLengthTolerance
}

// mustUnit panics if p is not unit length. Operations that assume the
// unit-sphere invariant reject bad inputs instead of renormalizing.
func (p Point) mustUnit(op string) {
	if !p.IsUnitLength() {
		panic(fmt.Sprintf("sphere: %s requires a unit-length point, got norm %v", op, p.Norm()))
	}
}

// Plus returns the pointwise sum of p and other.
func (p Point) Plus(other Point) Point {
	return Point{p.X + other.X, p.Y + other.Y, p.Z + other.Z}
}

// Minus returns the pointwise subtraction of other from p.
func (p Point) Minus(other Point) Point {
	return Point{p.X - other.X, p.Y - other.Y, p.Z - other.Z}
}

// Times returns p scaled by val.
func (p Point) Times(val float64) Point {
	return Point{p.X * val, p.Y * val, p.Z * val}
}

// DotProd returns the scalar dot product of p with other.
func (p Point) DotProd(other Point) float64 {
	return p.X*other.X + p.Y*other.Y + p.Z*other.Z
}

// CrossProd returns the cross product of p and other.
func (p Point) CrossProd(other Point) Point {
	return Point{
		p.Y*other.Z - p.Z*other.Y,
		p.Z*other.X - p.X*other.Z,
		p.X*other.Y - p.Y*other.X,
	}
}

// Normalize returns a unit point in the same direction as p.
// Panics if p has zero norm.
func (p Point) Normalize() Point {
	n := p.Norm()
	if n == 0 {
		panic("sphere: cannot normalize the zero vector")
	}
	return p.Times(1 / n)
}

// RobustCrossProd is a robust version of CrossProd. If p and other are
// not nearly identical or antipodal it returns the normalized cross
// product. In the nearly-parallel case, where the raw cross product
// loses precision catastrophically, it returns an arbitrary unit point
// orthogonal to p instead. Both operands must be unit length.
func (p Point) RobustCrossProd(other Point) Point {
	p.mustUnit("RobustCrossProd")
	other.mustUnit("RobustCrossProd")

	x := p.Plus(other).CrossProd(other.Minus(p))
	if math.Abs(x.X) > degeneracyThreshold ||
		math.Abs(x.Y) > degeneracyThreshold ||
		math.Abs(x.Z) > degeneracyThreshold {
		return x.Normalize()
	}
	return p.Ortho()
}

// LargestComponent returns the index (0, 1 or 2) and value of the
// component of p with the greatest absolute magnitude.
func (p Point) LargestComponent() (int, float64) {
	if math.Abs(p.X) > math.Abs(p.Y) {
		if math.Abs(p.X) > math.Abs(p.Z) {
			return 0, p.X
		}
		return 2, p.Z
	}
	if math.Abs(p.Y) > math.Abs(p.Z) {
		return 1, p.Y
	}
	return 2, p.Z
}

// Ortho returns a unit-length point orthogonal to p. The reference
// axis is picked via LargestComponent so the cross product never
// degenerates.
func (p Point) Ortho() Point {
	index, _ := p.LargestComponent()
	index--
	if index < 0 {
		index = 2
	}
	temp := Point{0.012, 0.053, 0.00457}
	switch index {
	case 0:
		temp.X = 1
	case 1:
		temp.Y = 1
	case 2:
		temp.Z = 1
	}
	return p.CrossProd(temp).Normalize()
}

// Angle returns the angle in radians between p and other. The atan2
// form is stable over the full [0, pi] range, unlike acos of the dot
// product near 0 and pi.
func (p Point) Angle(other Point) float64 {
	return math.Atan2(p.CrossProd(other).Norm(), p.DotProd(other))
}

// GetDistanceMeters returns the great-circle distance between p and
// other under the spherical Earth model. Both points must be unit
// length.
func (p Point) GetDistanceMeters(other Point) float64 {
	p.mustUnit("GetDistanceMeters")
	other.mustUnit("GetDistanceMeters")
	return p.Angle(other) * EarthRadiusMeters
}

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < equalityTolerance
}

// Equals reports componentwise approximate equality of p and other.
func (p Point) Equals(other Point) bool {
	return approxEq(p.X, other.X) && approxEq(p.Y, other.Y) && approxEq(p.Z, other.Z)
}

// FromLatLng returns the point for a latitude and longitude in degrees
// under the spherical Earth model.
func FromLatLng(lat, lng float64) Point {
	phi := lat * (math.Pi / 180.0)
	theta := lng * (math.Pi / 180.0)
	cosphi := math.Cos(phi)
	return Point{
		math.Cos(theta) * cosphi,
		math.Sin(theta) * cosphi,
		math.Sin(phi),
	}
}

// ToLatLng returns the latitude and longitude in degrees that p
// represents under the spherical Earth model.
func (p Point) ToLatLng() (lat, lng float64) {
	radLat := math.Atan2(p.Z, math.Sqrt(p.X*p.X+p.Y*p.Y))
	radLng := math.Atan2(p.Y, p.X)
	return radLat * 180.0 / math.Pi, radLng * 180.0 / math.Pi
}

// String formats p with full precision, mostly for debug output.
func (p Point) String() string {
	return fmt.Sprintf("(%.15f, %.15f, %.15f)", p.X, p.Y, p.Z)
}
