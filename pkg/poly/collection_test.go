package poly

import (
	"errors"
	"testing"

	"shapelib/pkg/sphere"
)

func TestFindMatchingPolys(t *testing.T) {
	p := buildPoly("X",
		sphere.Point{X: 0, Y: 1, Z: 0},
		sphere.Point{X: 0, Y: 0.5, Z: 0.5}.Normalize(),
		sphere.Point{X: 0, Y: 0, Z: 1},
	)

	c := NewCollection()
	if _, err := c.AddPoly(p, true); err != nil {
		t.Fatalf("AddPoly: %v", err)
	}

	match := c.FindMatchingPolys(sphere.Point{X: 0, Y: 1, Z: 0}, sphere.Point{X: 0, Y: 0, Z: 1},
		DefaultMatchRadiusMeters)
	if len(match) != 1 || match[0] != p {
		t.Errorf("FindMatchingPolys(start, end) = %v, want exactly the inserted poly", match)
	}

	// Reversed/degenerate query: the end point is nowhere near the
	// shape's last point.
	match = c.FindMatchingPolys(sphere.Point{X: 0, Y: 1, Z: 0}, sphere.Point{X: 0, Y: 1, Z: 0},
		DefaultMatchRadiusMeters)
	if len(match) != 0 {
		t.Errorf("degenerate query matched %d polys, want 0", len(match))
	}
}

func TestFindMatchingPolysEndpointRadius(t *testing.T) {
	p := buildPoly("route",
		sphere.FromLatLng(45.585212, -122.586136),
		sphere.FromLatLng(45.586654, -122.587595),
	)
	c := NewCollection()
	if _, err := c.AddPoly(p, true); err != nil {
		t.Fatalf("AddPoly: %v", err)
	}

	tests := []struct {
		name       string
		start, end sphere.Point
		want       int
	}{
		{
			name:  "exact endpoints",
			start: sphere.FromLatLng(45.585212, -122.586136),
			end:   sphere.FromLatLng(45.586654, -122.587595),
			want:  1,
		},
		{
			name:  "start a few meters off",
			start: sphere.FromLatLng(45.585219, -122.586136),
			end:   sphere.FromLatLng(45.586654, -122.587595),
			want:  1,
		},
		{
			name:  "start beyond the radius",
			start: sphere.FromLatLng(45.587212, -122.586136),
			end:   sphere.FromLatLng(45.586654, -122.587595),
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := c.FindMatchingPolys(tt.start, tt.end, DefaultMatchRadiusMeters)
			if len(match) != tt.want {
				t.Errorf("matched %d polys, want %d", len(match), tt.want)
			}
		})
	}
}

func TestAddPolyStrictDuplicate(t *testing.T) {
	c := NewCollection()
	p1 := buildPoly("X", sphere.FromLatLng(1.35, 103.82), sphere.FromLatLng(1.36, 103.83))
	p2 := buildPoly("X", sphere.FromLatLng(1.45, 103.92), sphere.FromLatLng(1.46, 103.93))

	if _, err := c.AddPoly(p1, false); err != nil {
		t.Fatalf("first AddPoly: %v", err)
	}
	_, err := c.AddPoly(p2, false)
	if !errors.Is(err, ErrDuplicateShape) {
		t.Fatalf("AddPoly error = %v, want ErrDuplicateShape", err)
	}
	if c.NumPolys() != 1 {
		t.Errorf("NumPolys = %d, want 1", c.NumPolys())
	}
}

func TestAddPolySkipsExactDuplicate(t *testing.T) {
	c := NewCollection()
	p1 := buildPoly("X", sphere.FromLatLng(1.35, 103.82), sphere.FromLatLng(1.36, 103.83))
	// Offset well below the 10 m dedup threshold (~0.1 m).
	p2 := buildPoly("X", sphere.FromLatLng(1.350000009, 103.82), sphere.FromLatLng(1.36, 103.83))

	if _, err := c.AddPoly(p1, true); err != nil {
		t.Fatalf("first AddPoly: %v", err)
	}
	name, err := c.AddPoly(p2, true)
	if err != nil {
		t.Fatalf("second AddPoly: %v", err)
	}
	if name != "X" {
		t.Errorf("inserted name = %q, want %q", name, "X")
	}
	if c.NumPolys() != 1 {
		t.Errorf("NumPolys = %d, want 1", c.NumPolys())
	}

	// The original entry is retained, not overwritten by the newcomer.
	got, ok := c.Get("X")
	if !ok || got != p1 {
		t.Errorf("Get(X) = %v, want the first inserted poly", got)
	}
}

func TestAddPolyUniquifiesVariant(t *testing.T) {
	c := NewCollection()
	p1 := buildPoly("X", sphere.FromLatLng(1.35, 103.82), sphere.FromLatLng(1.36, 103.83))
	// Same declared name, ~1.1 km away: a legitimate distinct variant.
	p2 := buildPoly("X", sphere.FromLatLng(1.36, 103.82), sphere.FromLatLng(1.37, 103.83))

	if _, err := c.AddPoly(p1, true); err != nil {
		t.Fatalf("first AddPoly: %v", err)
	}
	name, err := c.AddPoly(p2, true)
	if err != nil {
		t.Fatalf("second AddPoly: %v", err)
	}
	if name != "X-1" {
		t.Errorf("inserted name = %q, want %q", name, "X-1")
	}
	if c.NumPolys() != 2 {
		t.Errorf("NumPolys = %d, want 2", c.NumPolys())
	}

	got, ok := c.Get("X-1")
	if !ok || got != p2 {
		t.Errorf("Get(X-1) = %v, want the variant poly", got)
	}
	if got, _ := c.Get("X"); got != p1 {
		t.Errorf("Get(X) = %v, want the original poly", got)
	}
}

func TestNames(t *testing.T) {
	c := NewCollection()
	for _, name := range []string{"b", "a", "c"} {
		if _, err := c.AddPoly(buildPoly(name, sphere.FromLatLng(1.35, 103.82)), true); err != nil {
			t.Fatalf("AddPoly(%s): %v", name, err)
		}
	}
	names := c.Names()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
}
