package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"shapelib/pkg/gtfs"
	"shapelib/pkg/poly"
)

func main() {
	input := flag.String("input", "", "Path to a GTFS shapes.txt")
	output := flag.String("output", "shapes_dedup.txt", "Output shapes.txt path")
	strict := flag.Bool("strict", false, "Fail on duplicate shape ids instead of deduplicating")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: shapededup --input shapes.txt [--output shapes_dedup.txt] [--strict]")
		os.Exit(1)
	}

	start := time.Now()

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	shapes, err := gtfs.ReadShapes(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read shapes: %v", err)
	}
	log.Printf("Read %d shapes from %s", len(shapes), *input)

	collection := poly.NewCollection()
	var skipped, renamed int
	for _, p := range shapes {
		name, err := collection.AddPoly(p, !*strict)
		if err != nil {
			log.Fatalf("Failed to add shape: %v", err)
		}
		inserted, _ := collection.Get(name)
		switch {
		case name != p.Name():
			renamed++
			log.Printf("Warning: duplicate shape id %q differs by more than %.0f m; added variant as %q",
				p.Name(), poly.DedupDistanceMeters, name)
		case inserted != p:
			skipped++
			log.Printf("Warning: duplicate shape id %q looks like an exact duplicate; skipping", p.Name())
		}
	}

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	deduped := make([]*poly.Poly, 0, collection.NumPolys())
	for _, name := range collection.Names() {
		p, _ := collection.Get(name)
		deduped = append(deduped, p)
	}
	if err := gtfs.WriteShapes(out, deduped); err != nil {
		out.Close()
		log.Fatalf("Failed to write shapes: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Fatalf("Failed to close output file: %v", err)
	}

	log.Printf("Done in %s: kept %d shapes (%d exact duplicates skipped, %d variants renamed). Output: %s",
		time.Since(start).Round(time.Millisecond), collection.NumPolys(), skipped, renamed, *output)
}
