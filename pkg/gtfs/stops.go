package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"shapelib/pkg/sphere"
)

// Stop is one stops.txt entry.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lng  float64
}

// Point returns the stop's location on the unit sphere.
func (s Stop) Point() sphere.Point {
	return sphere.FromLatLng(s.Lat, s.Lng)
}

// ReadStops parses a GTFS stops.txt. Requires stop_id, stop_lat and
// stop_lon columns; stop_name is optional. Stations and entrances
// (rows without coordinates) are not expected here and fail parsing.
func ReadStops(r io.Reader) ([]Stop, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("stops.txt header: %w", err)
	}
	idx, err := columnIndex(header, "stop_id", "stop_lat", "stop_lon")
	if err != nil {
		return nil, fmt.Errorf("stops.txt: %w", err)
	}
	nameIdx, hasName := idx["stop_name"]

	var stops []Stop
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stops.txt line %d: %w", line, err)
		}

		lat, err := strconv.ParseFloat(record[idx["stop_lat"]], 64)
		if err != nil {
			return nil, fmt.Errorf("stops.txt line %d: stop_lat: %w", line, err)
		}
		lng, err := strconv.ParseFloat(record[idx["stop_lon"]], 64)
		if err != nil {
			return nil, fmt.Errorf("stops.txt line %d: stop_lon: %w", line, err)
		}

		stop := Stop{ID: record[idx["stop_id"]], Lat: lat, Lng: lng}
		if hasName {
			stop.Name = record[nameIdx]
		}
		stops = append(stops, stop)
	}
	return stops, nil
}
