// Package gtfs reads and writes the GTFS files the shape tools need:
// shapes.txt and stops.txt. Parsing is header-driven, so column order
// does not matter; unknown columns are ignored.
package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"shapelib/pkg/poly"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("missing required column")

// shapePoint is one shapes.txt row, before grouping.
type shapePoint struct {
	lat, lng float64
	seq      int
}

// columnIndex maps required column names to their header positions.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return idx, nil
}

// ReadShapes parses a GTFS shapes.txt. Rows are grouped by shape_id
// and ordered by shape_pt_sequence; shapes come back in order of first
// appearance. Requires shape_id, shape_pt_lat, shape_pt_lon and
// shape_pt_sequence columns.
func ReadShapes(r io.Reader) ([]*poly.Poly, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("shapes.txt header: %w", err)
	}
	idx, err := columnIndex(header, "shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence")
	if err != nil {
		return nil, fmt.Errorf("shapes.txt: %w", err)
	}

	points := make(map[string][]shapePoint)
	var order []string

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("shapes.txt line %d: %w", line, err)
		}

		id := record[idx["shape_id"]]
		lat, err := strconv.ParseFloat(record[idx["shape_pt_lat"]], 64)
		if err != nil {
			return nil, fmt.Errorf("shapes.txt line %d: shape_pt_lat: %w", line, err)
		}
		lng, err := strconv.ParseFloat(record[idx["shape_pt_lon"]], 64)
		if err != nil {
			return nil, fmt.Errorf("shapes.txt line %d: shape_pt_lon: %w", line, err)
		}
		seq, err := strconv.Atoi(record[idx["shape_pt_sequence"]])
		if err != nil {
			return nil, fmt.Errorf("shapes.txt line %d: shape_pt_sequence: %w", line, err)
		}

		if _, seen := points[id]; !seen {
			order = append(order, id)
		}
		points[id] = append(points[id], shapePoint{lat: lat, lng: lng, seq: seq})
	}

	polys := make([]*poly.Poly, 0, len(order))
	for _, id := range order {
		rows := points[id]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].seq < rows[j].seq
		})
		b := poly.NewBuilder(id)
		for _, row := range rows {
			b.AddLatLng(row.lat, row.lng)
		}
		polys = append(polys, b.Poly())
	}
	return polys, nil
}

// WriteShapes emits polylines as a GTFS shapes.txt, one row per point,
// sequences numbered from 1.
func WriteShapes(w io.Writer, polys []*poly.Poly) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"}); err != nil {
		return fmt.Errorf("shapes.txt header: %w", err)
	}
	for _, p := range polys {
		for i := 0; i < p.GetNumPoints(); i++ {
			lat, lng := p.GetPoint(i).ToLatLng()
			record := []string{
				p.Name(),
				strconv.FormatFloat(lat, 'f', 6, 64),
				strconv.FormatFloat(lng, 'f', 6, 64),
				strconv.Itoa(i + 1),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("shapes.txt shape %s: %w", p.Name(), err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
