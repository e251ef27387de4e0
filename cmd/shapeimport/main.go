package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shapelib/pkg/gtfs"
	"shapelib/pkg/poly"
	osmroutes "shapelib/pkg/osm"
)

func main() {
	input := flag.String("input", "", "Path to .osm.pbf file")
	shapesPath := flag.String("shapes", "", "Existing GTFS shapes.txt to match against (optional)")
	output := flag.String("output", "shapes_out.txt", "Output shapes.txt path")
	bbox := flag.String("bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng (e.g. 1.15,103.6,1.48,104.1)")
	maxDistance := flag.Float64("max-distance", poly.DefaultMatchRadiusMeters,
		"Endpoint radius in meters when matching extracted routes to existing shapes")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: shapeimport --input <file.osm.pbf> [--shapes shapes.txt] [--output shapes_out.txt] [--bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	var opts osmroutes.ExtractOptions
	if *bbox != "" {
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("Invalid bbox format (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmroutes.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("Using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	// Step 1: Extract transit routes from OSM.
	log.Println("Opening OSM file...")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("Extracting transit routes...")
	routes, err := osmroutes.ExtractRoutes(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("Failed to extract routes: %v", err)
	}

	// Step 2: Load the feed's existing shapes, if any.
	collection := poly.NewCollection()
	if *shapesPath != "" {
		sf, err := os.Open(*shapesPath)
		if err != nil {
			log.Fatalf("Failed to open shapes file: %v", err)
		}
		existing, err := gtfs.ReadShapes(sf)
		sf.Close()
		if err != nil {
			log.Fatalf("Failed to read shapes: %v", err)
		}
		for _, p := range existing {
			if _, err := collection.AddPoly(p, true); err != nil {
				log.Fatalf("Failed to add existing shape: %v", err)
			}
		}
		log.Printf("Loaded %d existing shapes from %s", collection.NumPolys(), *shapesPath)
	}

	// Step 3: Match each extracted route against the existing shapes;
	// keep the best greedy match, import the rest as new shapes.
	var matched, imported int
	for _, route := range routes {
		shape := route.Shape
		first := shape.GetPoint(0)
		last := shape.GetPoint(shape.GetNumPoints() - 1)

		candidates := collection.FindMatchingPolys(first, last, *maxDistance)
		if len(candidates) > 0 {
			best := candidates[0]
			bestScore := shape.GreedyPolyMatchDist(best)
			for _, c := range candidates[1:] {
				if score := shape.GreedyPolyMatchDist(c); score < bestScore {
					best, bestScore = c, score
				}
			}
			matched++
			log.Printf("Route %q (%s) matches existing shape %q (max deviation %.1f m)",
				route.Name, route.RouteType, best.Name(), bestScore)
			continue
		}

		name, err := collection.AddPoly(shape, true)
		if err != nil {
			log.Fatalf("Failed to add route %q: %v", route.Name, err)
		}
		imported++
		log.Printf("Imported route %q (%s) as shape %q (%d points, %.1f km)",
			route.Name, route.RouteType, name, shape.GetNumPoints(), shape.LengthMeters()/1000)
	}

	// Step 4: Write the combined shape set.
	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	all := make([]*poly.Poly, 0, collection.NumPolys())
	for _, name := range collection.Names() {
		p, _ := collection.Get(name)
		all = append(all, p)
	}
	if err := gtfs.WriteShapes(out, all); err != nil {
		out.Close()
		log.Fatalf("Failed to write shapes: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Failed to close output file: %v", err)
	}

	log.Printf("Done in %s: %d routes matched existing shapes, %d imported. Output: %s (%d shapes)",
		time.Since(start).Round(time.Millisecond), matched, imported, *output, collection.NumPolys())
}
