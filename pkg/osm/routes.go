// Package osm extracts transit route geometry from OpenStreetMap PBF
// extracts. Route relations (type=route) are stitched into one
// polyline per relation, suitable for matching against a GTFS feed's
// shapes.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"shapelib/pkg/poly"
	"shapelib/pkg/sphere"
)

// defaultRouteTypes lists the route=* values extracted when no
// explicit set is configured.
var defaultRouteTypes = map[string]bool{
	"bus":        true,
	"trolleybus": true,
	"tram":       true,
	"train":      true,
	"subway":     true,
	"light_rail": true,
	"ferry":      true,
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only routes that lie entirely inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ExtractOptions configures route extraction.
type ExtractOptions struct {
	BBox       BBox            // if non-zero, keep only routes fully inside
	RouteTypes map[string]bool // route=* values to keep; nil = defaults
}

// Route is one extracted transit route relation.
type Route struct {
	RelationID osm.RelationID
	Name       string // ref tag, falling back to name, then the relation id
	RouteType  string // the relation's route=* value
	Shape      *poly.Poly
}

// isTransitRoute returns true if the relation is a route of a wanted
// transit mode.
func isTransitRoute(tags osm.Tags, routeTypes map[string]bool) bool {
	if tags.Find("type") != "route" {
		return false
	}
	return routeTypes[tags.Find("route")]
}

// isGeometryMember returns true if a relation member way contributes
// track geometry. Platform and stop members describe boarding
// locations, not the traveled path.
func isGeometryMember(m osm.Member) bool {
	if m.Type != osm.TypeWay {
		return false
	}
	if strings.HasPrefix(m.Role, "platform") || strings.HasPrefix(m.Role, "stop") {
		return false
	}
	return true
}

// routeName picks a stable shape id for a relation.
func routeName(rel *osm.Relation) string {
	if ref := rel.Tags.Find("ref"); ref != "" {
		return ref
	}
	if name := rel.Tags.Find("name"); name != "" {
		return name
	}
	return fmt.Sprintf("relation-%d", rel.ID)
}

// relationInfo holds parsed relation data collected during pass 1.
type relationInfo struct {
	id        osm.RelationID
	name      string
	routeType string
	wayIDs    []osm.WayID
}

// ExtractRoutes reads an OSM PBF extract and returns one stitched
// polyline per transit route relation. The reader is consumed three
// times (relations, then ways, then nodes), so it must implement
// io.ReadSeeker.
func ExtractRoutes(ctx context.Context, rs io.ReadSeeker, opts ...ExtractOptions) ([]Route, error) {
	var opt ExtractOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	routeTypes := opt.RouteTypes
	if routeTypes == nil {
		routeTypes = defaultRouteTypes
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: scan relations for transit routes and their member ways.
	var relations []relationInfo
	neededWays := make(map[osm.WayID][]osm.NodeID)

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipWays = true

	for scanner.Scan() {
		rel, ok := scanner.Object().(*osm.Relation)
		if !ok {
			continue
		}
		if !isTransitRoute(rel.Tags, routeTypes) {
			continue
		}

		info := relationInfo{
			id:        rel.ID,
			name:      routeName(rel),
			routeType: rel.Tags.Find("route"),
		}
		for _, m := range rel.Members {
			if !isGeometryMember(m) {
				continue
			}
			wayID := osm.WayID(m.Ref)
			info.wayIDs = append(info.wayIDs, wayID)
			neededWays[wayID] = nil
		}
		if len(info.wayIDs) > 0 {
			relations = append(relations, info)
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (relations): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 1 complete: %d route relations, %d member ways", len(relations), len(neededWays))

	// Pass 2: collect node references for member ways.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	neededNodes := make(map[osm.NodeID]struct{})

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if _, needed := neededWays[w.ID]; !needed {
			continue
		}
		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			neededNodes[wn.ID] = struct{}{}
		}
		neededWays[w.ID] = nodeIDs
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 2 complete: %d node references", len(neededNodes))

	// Pass 3: collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 3: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(neededNodes))
	nodeLon := make(map[osm.NodeID]float64, len(neededNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := neededNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 3 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("Pass 3 complete: %d node coordinates collected", len(nodeLat))

	// Stitch each relation's member ways into one polyline.
	var routes []Route
	var skippedWays, bboxFiltered, emptyRoutes int

	for _, info := range relations {
		var wayPolys []*poly.Poly
		for _, wayID := range info.wayIDs {
			nodeIDs := neededWays[wayID]
			if len(nodeIDs) < 2 {
				skippedWays++
				continue
			}
			b := poly.NewBuilder("")
			complete := true
			for _, id := range nodeIDs {
				lat, ok := nodeLat[id]
				if !ok {
					complete = false
					break
				}
				b.AddLatLng(lat, nodeLon[id])
			}
			if !complete {
				skippedWays++
				continue
			}
			wayPolys = append(wayPolys, b.Poly())
		}

		shape := stitchWays(wayPolys, info.name)
		if shape.GetNumPoints() == 0 {
			emptyRoutes++
			continue
		}
		if useBBox && !insideBBox(shape, opt.BBox) {
			bboxFiltered++
			continue
		}

		routes = append(routes, Route{
			RelationID: info.id,
			Name:       info.name,
			RouteType:  info.routeType,
			Shape:      shape,
		})
	}

	if skippedWays > 0 {
		log.Printf("Warning: skipped %d member ways with missing geometry", skippedWays)
	}
	if bboxFiltered > 0 {
		log.Printf("Filtered %d routes outside bounding box", bboxFiltered)
	}
	if emptyRoutes > 0 {
		log.Printf("Dropped %d routes with no usable geometry", emptyRoutes)
	}
	log.Printf("Extracted %d transit routes", len(routes))

	return routes, nil
}

// stitchWays joins member way polylines into a single named polyline.
// Ways in OSM relations are not consistently oriented, so each way is
// flipped when its far end lines up better with the previous way's
// tail; nearby junction endpoints then collapse in the merge.
func stitchWays(ways []*poly.Poly, name string) *poly.Poly {
	if len(ways) == 0 {
		return poly.NewPoly(name, nil)
	}

	oriented := make([]*poly.Poly, len(ways))
	oriented[0] = ways[0]
	if len(ways) > 1 {
		// Orient the first way so its tail faces the second way.
		first, second := ways[0], ways[1]
		if endpointGap(first.GetPoint(0), second) < endpointGap(first.GetPoint(first.GetNumPoints()-1), second) {
			oriented[0] = first.Reversed()
		}
	}
	for i := 1; i < len(ways); i++ {
		prev := oriented[i-1]
		tail := prev.GetPoint(prev.GetNumPoints() - 1)
		w := ways[i]
		head := w.GetPoint(0)
		end := w.GetPoint(w.GetNumPoints() - 1)
		if tail.GetDistanceMeters(head) > tail.GetDistanceMeters(end) {
			w = w.Reversed()
		}
		oriented[i] = w
	}

	merged := poly.MergePolys(oriented, poly.MergePointThresholdMeters)
	return poly.NewPoly(name, merged.GetPoints())
}

// endpointGap returns the distance from p to the nearer endpoint of w.
func endpointGap(p sphere.Point, w *poly.Poly) float64 {
	dHead := p.GetDistanceMeters(w.GetPoint(0))
	dEnd := p.GetDistanceMeters(w.GetPoint(w.GetNumPoints() - 1))
	if dHead < dEnd {
		return dHead
	}
	return dEnd
}

// insideBBox returns true if every point of the shape is inside b.
func insideBBox(shape *poly.Poly, b BBox) bool {
	for i := 0; i < shape.GetNumPoints(); i++ {
		lat, lng := shape.GetPoint(i).ToLatLng()
		if !b.Contains(lat, lng) {
			return false
		}
	}
	return true
}
