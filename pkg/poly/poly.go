// Package poly provides polylines on the unit sphere and collections
// of them, keyed by name. A polyline approximates a transit vehicle's
// traveled route; the operations here compare differently-sampled
// polylines, project points onto them, and split them.
package poly

import (
	"fmt"
	"strings"

	"shapelib/pkg/sphere"
)

// Poly is an ordered sequence of unit-sphere points with an optional
// name used as its identity in a Collection. A Poly is immutable once
// built; construct one with a Builder or NewPoly.
type Poly struct {
	name   string
	points []sphere.Point
}

// NewPoly builds a polyline from the given points. Panics if any point
// is not unit length. The slice is copied.
func NewPoly(name string, points []sphere.Point) *Poly {
	copied := make([]sphere.Point, len(points))
	for i, p := range points {
		if !p.IsUnitLength() {
			panic(fmt.Sprintf("poly: point %d is not unit length", i))
		}
		copied[i] = p
	}
	return &Poly{name: name, points: copied}
}

// Builder accumulates points for a Poly. Appending happens only here;
// the built Poly is read-only, which makes it safe to share across
// concurrent queries.
type Builder struct {
	name   string
	points []sphere.Point
}

// NewBuilder returns an empty Builder for a polyline with the given
// name. The name may be empty.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// AddPoint appends p to the end of the polyline under construction.
// Panics if p is not unit length.
func (b *Builder) AddPoint(p sphere.Point) {
	if !p.IsUnitLength() {
		panic("poly: AddPoint requires a unit-length point")
	}
	b.points = append(b.points, p)
}

// AddLatLng appends the point for a latitude/longitude pair in degrees.
func (b *Builder) AddLatLng(lat, lng float64) {
	b.points = append(b.points, sphere.FromLatLng(lat, lng))
}

// NumPoints returns the number of points accumulated so far.
func (b *Builder) NumPoints() int {
	return len(b.points)
}

// Poly returns the built polyline. The Builder may keep accumulating
// points afterwards without affecting the returned Poly.
func (b *Builder) Poly() *Poly {
	points := make([]sphere.Point, len(b.points))
	copy(points, b.points)
	return &Poly{name: b.name, points: points}
}

// Name returns the polyline's name, which may be empty.
func (p *Poly) Name() string {
	return p.name
}

// GetPoint returns the i-th point.
func (p *Poly) GetPoint(i int) sphere.Point {
	return p.points[i]
}

// GetNumPoints returns the number of points in the polyline.
func (p *Poly) GetNumPoints() int {
	return len(p.points)
}

// GetPoints returns a copy of the polyline's points.
func (p *Poly) GetPoints() []sphere.Point {
	points := make([]sphere.Point, len(p.points))
	copy(points, p.points)
	return points
}

// GetClosestPoint returns the closest point to x on the piecewise
// great-circle curve represented by the polyline, along with the index
// of the point just before the segment that contains it. Ties go to
// the first segment found. Panics on an empty polyline or a non-unit x.
func (p *Poly) GetClosestPoint(x sphere.Point) (sphere.Point, int) {
	if len(p.points) == 0 {
		panic("poly: GetClosestPoint on empty polyline")
	}
	if !x.IsUnitLength() {
		panic("poly: GetClosestPoint requires a unit-length point")
	}
	closest := p.points[0]
	closestIdx := 0

	for i := 0; i < len(p.points)-1; i++ {
		cur := sphere.GetClosestPoint(x, p.points[i], p.points[i+1])
		if x.Angle(cur) < x.Angle(closest) {
			closest = cur.Normalize()
			closestIdx = i
		}
	}
	return closest, closestIdx
}

// CutAtClosestPoint finds the point on the polyline closest to x and
// returns two new polylines: one from the beginning through the start
// of the matched segment, and one from the closest point onwards. The
// closest point itself is the first point of the second polyline and
// is never duplicated in the first.
func (p *Poly) CutAtClosestPoint(x sphere.Point) (*Poly, *Poly) {
	closest, i := p.GetClosestPoint(x)

	suffix := make([]sphere.Point, 0, len(p.points)-i)
	suffix = append(suffix, closest)
	suffix = append(suffix, p.points[i+1:]...)
	return &Poly{points: p.points[:i+1]}, &Poly{points: suffix}
}

// GreedyPolyMatchDist matches p against other with a greedy algorithm
// and returns the maximum distance in meters from any point of p to
// its matched point on other. Each point of p consumes a prefix of
// other, so matches can only move forward: a polyline equal to other
// but traversed in reverse does not score near zero.
func (p *Poly) GreedyPolyMatchDist(other *Poly) float64 {
	tmp := &Poly{points: other.points}
	maxRadius := 0.0
	for _, point := range p.points {
		_, tmp = tmp.CutAtClosestPoint(point)
		if d := tmp.points[0].GetDistanceMeters(point); d > maxRadius {
			maxRadius = d
		}
	}
	return maxRadius
}

// LengthMeters returns the length of the polyline in meters. Panics on
// an empty polyline.
func (p *Poly) LengthMeters() float64 {
	if len(p.points) == 0 {
		panic("poly: LengthMeters on empty polyline")
	}
	length := 0.0
	for i := 0; i < len(p.points)-1; i++ {
		length += p.points[i].GetDistanceMeters(p.points[i+1])
	}
	return length
}

// Reversed returns a polyline with the same name and the points in
// reverse order.
func (p *Poly) Reversed() *Poly {
	points := make([]sphere.Point, len(p.points))
	for i, pt := range p.points {
		points[len(points)-1-i] = pt
	}
	return &Poly{name: p.name, points: points}
}

// firstPoint and lastPoint return the endpoints, or false on an empty
// polyline.
func (p *Poly) firstPoint() (sphere.Point, bool) {
	if len(p.points) == 0 {
		return sphere.Point{}, false
	}
	return p.points[0], true
}

func (p *Poly) lastPoint() (sphere.Point, bool) {
	if len(p.points) == 0 {
		return sphere.Point{}, false
	}
	return p.points[len(p.points)-1], true
}

// MergePointThresholdMeters is the default endpoint-joining threshold
// for MergePolys.
const MergePointThresholdMeters = 10.0

// MergePolys concatenates polylines in the order given. The merged
// name joins the component names with ";". When the end of one
// polyline and the start of the next are at most mergePointThreshold
// meters apart, only the first of the two endpoints is kept.
func MergePolys(polys []*Poly, mergePointThreshold float64) *Poly {
	names := make([]string, len(polys))
	for i, p := range polys {
		names[i] = p.name
	}
	merged := &Poly{name: strings.Join(names, ";")}

	if len(polys) == 0 {
		return merged
	}
	merged.points = append(merged.points, polys[0].points...)
	last, haveLast := merged.lastPoint()
	for _, p := range polys[1:] {
		points := p.points
		if first, ok := p.firstPoint(); ok && haveLast &&
			last.GetDistanceMeters(first) <= mergePointThreshold {
			points = points[1:]
		}
		merged.points = append(merged.points, points...)
		last, haveLast = merged.lastPoint()
	}
	return merged
}

// String formats the polyline's name and raw points, for debug output.
func (p *Poly) String() string {
	return p.toString(sphere.Point.String)
}

// ToLatLngString formats the polyline as latitude/longitude pairs.
func (p *Poly) ToLatLngString() string {
	return p.toString(func(pt sphere.Point) string {
		lat, lng := pt.ToLatLng()
		return fmt.Sprintf("(%f, %f)", lat, lng)
	})
}

func (p *Poly) toString(format func(sphere.Point) string) string {
	parts := make([]string, len(p.points))
	for i, pt := range p.points {
		parts[i] = format(pt)
	}
	return fmt.Sprintf("%s: %s", p.name, strings.Join(parts, ", "))
}
