package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"shapelib/pkg/gtfs"
	"shapelib/pkg/poly"
)

func main() {
	shapesPath := flag.String("shapes", "", "Path to a GTFS shapes.txt")
	stopsPath := flag.String("stops", "", "Path to a GTFS stops.txt")
	maxDistance := flag.Float64("max-distance", poly.DefaultMatchRadiusMeters,
		"Report stops farther than this many meters from every shape")
	geojsonPath := flag.String("geojson", "", "Write offending stops as GeoJSON to this path")
	flag.Parse()

	if *shapesPath == "" || *stopsPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: stopsnap --shapes shapes.txt --stops stops.txt [--max-distance 150] [--geojson out.geojson]")
		os.Exit(1)
	}

	start := time.Now()

	sf, err := os.Open(*shapesPath)
	if err != nil {
		log.Fatalf("Failed to open shapes file: %v", err)
	}
	shapes, err := gtfs.ReadShapes(sf)
	sf.Close()
	if err != nil {
		log.Fatalf("Failed to read shapes: %v", err)
	}

	collection := poly.NewCollection()
	for _, p := range shapes {
		if _, err := collection.AddPoly(p, true); err != nil {
			log.Fatalf("Failed to add shape: %v", err)
		}
	}
	log.Printf("Loaded %d shapes from %s", collection.NumPolys(), *shapesPath)

	stf, err := os.Open(*stopsPath)
	if err != nil {
		log.Fatalf("Failed to open stops file: %v", err)
	}
	stops, err := gtfs.ReadStops(stf)
	stf.Close()
	if err != nil {
		log.Fatalf("Failed to read stops: %v", err)
	}
	log.Printf("Loaded %d stops from %s", len(stops), *stopsPath)

	log.Println("Building segment index...")
	snapper := poly.NewSnapper(collection)
	log.Printf("Indexed %d segments", snapper.Len())

	fc := geojson.NewFeatureCollection()
	var offenders int
	for _, stop := range stops {
		res, err := snapper.Snap(stop.Lat, stop.Lng)
		switch {
		case errors.Is(err, poly.ErrPointTooFar):
			offenders++
			log.Printf("Stop %s (%s): no shape within snapping range", stop.ID, stop.Name)
			feat := geojson.NewFeature(orb.Point{stop.Lng, stop.Lat})
			feat.Properties["stop_id"] = stop.ID
			feat.Properties["stop_name"] = stop.Name
			fc.Append(feat)
		case err != nil:
			log.Fatalf("Failed to snap stop %s: %v", stop.ID, err)
		case res.Dist > *maxDistance:
			offenders++
			log.Printf("Stop %s (%s): %.1f m from nearest shape %q", stop.ID, stop.Name, res.Dist, res.Name)
			feat := geojson.NewFeature(orb.Point{stop.Lng, stop.Lat})
			feat.Properties["stop_id"] = stop.ID
			feat.Properties["stop_name"] = stop.Name
			feat.Properties["nearest_shape"] = res.Name
			feat.Properties["distance_meters"] = res.Dist
			fc.Append(feat)
		}
	}

	if *geojsonPath != "" {
		data, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal GeoJSON: %v", err)
		}
		if err := os.WriteFile(*geojsonPath, data, 0o644); err != nil {
			log.Fatalf("Failed to write GeoJSON: %v", err)
		}
		log.Printf("Wrote %d offending stops to %s", offenders, *geojsonPath)
	}

	log.Printf("Done in %s: %d of %d stops farther than %.0f m from every shape",
		time.Since(start).Round(time.Millisecond), offenders, len(stops), *maxDistance)
}
