/*
Copyright (C) 2024-2025 the DTCC authors.
This file is part of DTCC.

DTCC is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

DTCC is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with DTCC.  If not, see <http://www.gnu.org/licenses/>.
*/

package pslg

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

func square(x0, y0, s float64) geom.Path {
	return geom.Path{
		{X: x0, Y: y0}, {X: x0 + s, Y: y0},
		{X: x0 + s, Y: y0 + s}, {X: x0, Y: y0 + s},
	}
}

func TestBuildSnapsNearbyVertices(t *testing.T) {
	// Two squares sharing the segment x=1, with the second square's copy of
	// the shared corners perturbed below the snap tolerance.
	a := Polygon{Exterior: square(0, 0, 1), Label: "a"}
	b := Polygon{
		Exterior: geom.Path{
			{X: 1 + 1e-9, Y: 1e-9}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1 - 1e-9},
		},
		Label: "b",
	}
	p, err := Build([]Polygon{a, b}, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(p.Verts), 6; got != want {
		t.Errorf("got %d vertices after snapping, want %d", got, want)
	}
	shared := 0
	for _, e := range p.Edges {
		if e.Regions[1] != "" {
			shared++
			if !(e.Regions[0] == "a" && e.Regions[1] == "b") &&
				!(e.Regions[0] == "b" && e.Regions[1] == "a") {
				t.Errorf("shared edge has labels %v", e.Regions)
			}
		}
	}
	if shared != 1 {
		t.Errorf("got %d shared edges, want 1", shared)
	}
	if got, want := len(p.Edges), 7; got != want {
		t.Errorf("got %d edges, want %d", got, want)
	}
}

func TestBuildNormalizesOrientation(t *testing.T) {
	// Exterior supplied clockwise, hole supplied counter-clockwise.
	cw := geom.Path{{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 0}}
	hole := square(1, 1, 1)
	p, err := Build([]Polygon{{Exterior: cw, Holes: []geom.Path{hole}, Label: "r"}}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	ext := p.LoopPath(0)
	if area := pathArea(ext); area <= 0 {
		t.Errorf("exterior loop area = %g, want counter-clockwise (positive)", area)
	}
	h := p.LoopPath(1)
	if area := pathArea(h); area >= 0 {
		t.Errorf("hole loop area = %g, want clockwise (negative)", area)
	}
}

func pathArea(r geom.Path) float64 {
	var a float64
	for i := range r {
		j := (i + 1) % len(r)
		a += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return a / 2
}

func TestBuildRejectsSelfIntersection(t *testing.T) {
	bowtie := geom.Path{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	_, err := Build([]Polygon{{Exterior: bowtie, Label: "r"}}, 1e-9)
	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want *GeometryError", err)
	}
}

func TestBuildRejectsCrossingPolygons(t *testing.T) {
	a := Polygon{
		Exterior: geom.Path{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 1, Y: 2}},
		Label:    "a",
	}
	b := Polygon{
		Exterior: geom.Path{{X: 0, Y: 2}, {X: 1, Y: 1e-7}, {X: 2, Y: 2}},
		Label:    "b",
	}
	_, err := Build([]Polygon{a, b}, 1e-3)
	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want *GeometryError", err)
	}
}

func TestBuildRejectsMismatchedInterfaceSubdivision(t *testing.T) {
	// Both polygons run along x=2 between y=0 and y=2, but the right one
	// splits that stretch at (2,1), so its segments overlap the left one's
	// single segment without matching it.
	left := Polygon{
		Exterior: geom.Path{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}},
		Label:    "a",
	}
	right := Polygon{
		Exterior: geom.Path{{X: 2, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 1}},
		Label:    "b",
	}
	_, err := Build([]Polygon{left, right}, 1e-9)
	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want *GeometryError", err)
	}
}

func TestBuildAllowsRedundantCollinearVertex(t *testing.T) {
	// A straight boundary stretch with an extra vertex on it is legal; the
	// consecutive collinear segments point away from each other.
	p := Polygon{
		Exterior: geom.Path{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}},
		Label:    "a",
	}
	if _, err := Build([]Polygon{p}, 1e-9); err != nil {
		t.Fatalf("Build: %v", err)
	}
}

func TestBuildRejectsDuplicateLabel(t *testing.T) {
	a := Polygon{Exterior: square(0, 0, 1), Label: "r"}
	b := Polygon{Exterior: square(5, 5, 1), Label: "r"}
	_, err := Build([]Polygon{a, b}, 1e-9)
	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want *GeometryError", err)
	}
}

func TestBuildRejectsDegenerateRing(t *testing.T) {
	tiny := geom.Path{{X: 0, Y: 0}, {X: 1e-9, Y: 0}, {X: 0, Y: 1e-9}}
	_, err := Build([]Polygon{{Exterior: tiny, Label: "r"}}, 1e-6)
	var ge *GeometryError
	if !errors.As(err, &ge) {
		t.Fatalf("got %v, want *GeometryError", err)
	}
}

func TestRegionAtNestedRegions(t *testing.T) {
	outer := Polygon{Exterior: square(0, 0, 4), Label: "outer"}
	inner := Polygon{Exterior: square(1, 1, 1), Label: "inner"}
	p, err := Build([]Polygon{outer, inner}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		pt   geom.Point
		want string
	}{
		{geom.Point{X: 1.5, Y: 1.5}, "inner"},
		{geom.Point{X: 3, Y: 3}, "outer"},
		{geom.Point{X: 0.5, Y: 0.5}, "outer"},
		{geom.Point{X: -1, Y: -1}, ""},
		{geom.Point{X: 5, Y: 2}, ""},
	}
	for _, c := range cases {
		if got := p.RegionAt(c.pt); got != c.want {
			t.Errorf("RegionAt(%v) = %q, want %q", c.pt, got, c.want)
		}
	}
}

func TestRegionAtHole(t *testing.T) {
	p, err := Build([]Polygon{{
		Exterior: square(0, 0, 3),
		Holes:    []geom.Path{square(1, 1, 1)},
		Label:    "ring",
	}}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.RegionAt(geom.Point{X: 1.5, Y: 1.5}); got != "" {
		t.Errorf("point in hole classified as %q, want outside", got)
	}
	if got := p.RegionAt(geom.Point{X: 0.5, Y: 1.5}); got != "ring" {
		t.Errorf("point in ring classified as %q, want ring", got)
	}
}

func TestRowMatchesRegionAt(t *testing.T) {
	outer := Polygon{Exterior: square(0, 0, 4), Label: "outer"}
	inner := Polygon{Exterior: square(1, 1, 2), Holes: []geom.Path{square(1.5, 1.5, 1)}, Label: "inner"}
	p, err := Build([]Polygon{outer, inner}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	for _, y := range []float64{-0.5, 0.3, 1.2, 1.7, 2.6, 3.9, 4.5} {
		row := p.Row(y)
		for x := -0.6; x < 4.7; x += 0.13 {
			want := p.RegionAt(geom.Point{X: x, Y: y})
			if got := row.RegionAt(x); got != want {
				t.Fatalf("Row(%g).RegionAt(%g) = %q, RegionAt = %q", y, x, got, want)
			}
		}
	}
}

func TestSeedPoints(t *testing.T) {
	outer := Polygon{Exterior: square(0, 0, 4), Label: "outer"}
	inner := Polygon{Exterior: square(1, 1, 1), Label: "inner"}
	p, err := Build([]Polygon{outer, inner}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	seeds := p.SeedPoints()
	if len(seeds) != 2 {
		t.Fatalf("got %d seeds, want 2", len(seeds))
	}
	labels := make(map[string]int)
	for _, s := range seeds {
		labels[p.RegionAt(s)]++
	}
	if labels["outer"] != 1 || labels["inner"] != 1 {
		t.Errorf("seed regions = %v, want one seed per region", labels)
	}
}

func TestSegmentDistance(t *testing.T) {
	a := geom.Point{X: 0, Y: 0}
	b := geom.Point{X: 2, Y: 0}
	cases := []struct {
		p    geom.Point
		want float64
	}{
		{geom.Point{X: 1, Y: 1}, 1},          // projects onto the interior
		{geom.Point{X: -3, Y: 4}, 5},         // clamps to endpoint a
		{geom.Point{X: 5, Y: 4}, 5},          // clamps to endpoint b
		{geom.Point{X: 1.5, Y: 0}, 0},        // on the segment
		{geom.Point{X: 0.25, Y: -0.5}, 0.5},  // below
	}
	for _, c := range cases {
		if got := SegmentDistance(c.p, a, b); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("SegmentDistance(%v) = %g, want %g", c.p, got, c.want)
		}
	}
	if got := SegmentDistance(geom.Point{X: 3, Y: 4}, a, a); math.Abs(got-5) > 1e-12 {
		t.Errorf("degenerate segment distance = %g, want 5", got)
	}
}

func TestNearestRegion(t *testing.T) {
	a := Polygon{Exterior: square(0, 0, 1), Label: "a"}
	b := Polygon{Exterior: square(10, 0, 1), Label: "b"}
	p, err := Build([]Polygon{a, b}, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.NearestRegion(geom.Point{X: 2, Y: 0.5}); got != "a" {
		t.Errorf("NearestRegion near a = %q", got)
	}
	if got := p.NearestRegion(geom.Point{X: 9, Y: 0.5}); got != "b" {
		t.Errorf("NearestRegion near b = %q", got)
	}
}
