package poly

import (
	"errors"
	"fmt"
	"sort"

	"shapelib/pkg/sphere"
)

// ErrDuplicateShape is returned by AddPoly when a polyline's name is
// already taken and smart duplicate handling is disabled.
var ErrDuplicateShape = errors.New("duplicate shape")

const (
	// DedupDistanceMeters is the greedy-match distance below which two
	// same-named polylines count as the same shape.
	DedupDistanceMeters = 10.0

	// DefaultMatchRadiusMeters is the endpoint radius for
	// FindMatchingPolys.
	DefaultMatchRadiusMeters = 150.0
)

// Collection is a set of polylines keyed by unique name. The
// collection owns its polylines once inserted. Mutation through
// AddPoly is not synchronized; serialize writers externally if the
// collection is shared.
type Collection struct {
	nameToShape map[string]*Poly
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{nameToShape: make(map[string]*Poly)}
}

// AddPoly inserts p into the collection and returns the name it was
// inserted under.
//
// On a name collision with smartDuplicateHandling disabled, it returns
// an error wrapping ErrDuplicateShape. With smart handling, a newcomer
// within DedupDistanceMeters of the existing entry (by greedy match)
// is discarded and the existing entry retained; a genuinely different
// variant is inserted under "<name>-<collection size>".
func (c *Collection) AddPoly(p *Poly, smartDuplicateHandling bool) (string, error) {
	name := p.Name()
	existing, collides := c.nameToShape[name]
	if !collides {
		c.nameToShape[name] = p
		return name, nil
	}
	if !smartDuplicateHandling {
		return "", fmt.Errorf("%w: %s", ErrDuplicateShape, name)
	}
	if p.GreedyPolyMatchDist(existing) < DedupDistanceMeters {
		// Exact duplicate; keep the entry already present.
		return name, nil
	}
	name = fmt.Sprintf("%s-%d", name, len(c.nameToShape))
	c.nameToShape[name] = p
	return name, nil
}

// NumPolys returns the number of polylines in the collection.
func (c *Collection) NumPolys() int {
	return len(c.nameToShape)
}

// Get returns the polyline inserted under name, if any.
func (c *Collection) Get(name string) (*Poly, bool) {
	p, ok := c.nameToShape[name]
	return p, ok
}

// Names returns the inserted names in sorted order.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.nameToShape))
	for name := range c.nameToShape {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindMatchingPolys returns the polylines whose first point is within
// maxRadius meters of start and whose last point is within maxRadius
// meters of end. Result order is unspecified.
func (c *Collection) FindMatchingPolys(start, end sphere.Point, maxRadius float64) []*Poly {
	var matches []*Poly
	for _, shape := range c.nameToShape {
		if shape.GetNumPoints() == 0 {
			continue
		}
		if start.GetDistanceMeters(shape.GetPoint(0)) < maxRadius &&
			end.GetDistanceMeters(shape.GetPoint(shape.GetNumPoints()-1)) < maxRadius {
			matches = append(matches, shape)
		}
	}
	return matches
}
