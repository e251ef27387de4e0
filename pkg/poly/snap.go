package poly

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"shapelib/pkg/sphere"
)

// maxSnapDistMeters bounds how far a query point may be from the
// nearest shape before snapping gives up.
const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from
// every shape in the collection.
var ErrPointTooFar = errors.New("point too far from any shape")

// SnapResult describes a point snapped to a shape segment.
type SnapResult struct {
	Poly         *Poly        // the matched shape
	Name         string       // name the shape is stored under
	SegmentIndex int          // index of the segment's first point
	Point        sphere.Point // closest point on the shape
	Dist         float64      // distance in meters from query to Point
}

// segRef identifies one segment of one indexed shape.
type segRef struct {
	name string
	poly *Poly
	seg  int
}

// Snapper answers nearest-shape queries over every segment of every
// polyline in a collection, backed by an R-tree over the segments'
// lat/lng bounding boxes. Candidates from the index are verified with
// the exact spherical projection. Build once, query concurrently.
type Snapper struct {
	tr rtree.RTreeG[segRef]
}

// NewSnapper indexes all segments of all polylines in c. Single-point
// shapes are indexed as degenerate segments so they remain findable.
func NewSnapper(c *Collection) *Snapper {
	s := &Snapper{}
	for _, name := range c.Names() {
		p, _ := c.Get(name)
		n := p.GetNumPoints()
		if n == 0 {
			continue
		}
		if n == 1 {
			lat, lng := p.GetPoint(0).ToLatLng()
			s.tr.Insert([2]float64{lng, lat}, [2]float64{lng, lat}, segRef{name, p, 0})
			continue
		}
		for i := 0; i < n-1; i++ {
			aLat, aLng := p.GetPoint(i).ToLatLng()
			bLat, bLng := p.GetPoint(i + 1).ToLatLng()
			min := [2]float64{math.Min(aLng, bLng), math.Min(aLat, bLat)}
			max := [2]float64{math.Max(aLng, bLng), math.Max(aLat, bLat)}
			s.tr.Insert(min, max, segRef{name, p, i})
		}
	}
	return s
}

// searchBox returns a lat/lng box around the query large enough to
// contain every segment within maxSnapDistMeters.
func searchBox(lat, lng float64) (min, max [2]float64) {
	latPad := maxSnapDistMeters / sphere.EarthRadiusMeters * 180 / math.Pi
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01 // keep the box bounded near the poles
	}
	lngPad := latPad / cosLat
	return [2]float64{lng - lngPad, lat - latPad}, [2]float64{lng + lngPad, lat + latPad}
}

// Snap finds the nearest shape segment to the given lat/lng. Returns
// ErrPointTooFar if nothing lies within maxSnapDistMeters.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	x := sphere.FromLatLng(lat, lng)

	bestDist := math.Inf(1)
	var best SnapResult

	min, max := searchBox(lat, lng)
	s.tr.Search(min, max, func(_, _ [2]float64, ref segRef) bool {
		var closest sphere.Point
		if ref.poly.GetNumPoints() == 1 {
			closest = ref.poly.GetPoint(0)
		} else {
			closest = sphere.GetClosestPoint(x, ref.poly.GetPoint(ref.seg), ref.poly.GetPoint(ref.seg+1))
		}
		if d := x.GetDistanceMeters(closest); d < bestDist {
			bestDist = d
			best = SnapResult{
				Poly:         ref.poly,
				Name:         ref.name,
				SegmentIndex: ref.seg,
				Point:        closest,
				Dist:         d,
			}
		}
		return true
	})

	if bestDist > maxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}

// Len returns the number of indexed segments.
func (s *Snapper) Len() int {
	return s.tr.Len()
}
