package sphere

// SimpleCCW reports whether the spherical triangle abc is oriented
// counterclockwise.
func SimpleCCW(a, b, c Point) bool {
	return c.CrossProd(a).DotProd(b) > 0
}

// GetClosestPoint returns the point on the great-circle segment ab
// closest to x. If the projection of x onto the great circle through a
// and b falls outside the segment, the nearer endpoint (by chord
// distance) is returned instead. All three points must be unit length.
func GetClosestPoint(x, a, b Point) Point {
	x.mustUnit("GetClosestPoint")
	a.mustUnit("GetClosestPoint")
	b.mustUnit("GetClosestPoint")

	aCrossB := a.RobustCrossProd(b)

	// Project x onto the great circle going through a and b.
	norm := aCrossB.Norm()
	p := x.Minus(aCrossB.Times(x.DotProd(aCrossB) / (norm * norm)))

	// If p lies between a and b, return it.
	if SimpleCCW(aCrossB, a, p) && SimpleCCW(p, b, aCrossB) {
		return p.Normalize()
	}

	// Otherwise return the closer of a or b.
	if x.Minus(a).Norm() <= x.Minus(b).Norm() {
		return a
	}
	return b
}
