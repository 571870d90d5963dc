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

package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"

	"github.com/dtcc-platform/dtcc/field"
)

// constGrid builds a sizing grid over b holding the same value everywhere.
func constGrid(b *geom.Bounds, maxh, value float64) *field.Grid {
	g := field.NewGrid(b, maxh)
	for i := range g.Data.Elements {
		g.Data.Elements[i] = value
	}
	return g
}

func squareRequest(h float64) *Request {
	b := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 1, Y: 1}}
	return &Request{
		Verts: []geom.Point{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Segments: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		Seeds:    []geom.Point{{X: 0.5, Y: 0.5}},
		Sizing:   constGrid(b, 1, h),
		HMin:     h,
		HMax:     1,
	}
}

func resultArea(r *Result) float64 {
	var sum float64
	for _, t := range r.Triangles {
		sum += triangleArea(r.Verts[t[0]], r.Verts[t[1]], r.Verts[t[2]])
	}
	return sum
}

func triangleArea(a, b, c geom.Point) float64 {
	return 0.5 * ((b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X))
}

func centroid(r *Result, t [3]int) geom.Point {
	a, b, c := r.Verts[t[0]], r.Verts[t[1]], r.Verts[t[2]]
	return geom.Point{X: (a.X + b.X + c.X) / 3, Y: (a.Y + b.Y + c.Y) / 3}
}

// boundaryEdges returns the undirected edges referenced by exactly one
// triangle.
func boundaryEdges(r *Result) [][2]int {
	count := make(map[[2]int]int)
	for _, t := range r.Triangles {
		for i := 0; i < 3; i++ {
			count[undirected(t[i], t[(i+1)%3])]++
		}
	}
	var out [][2]int
	for e, n := range count {
		if n == 1 {
			out = append(out, e)
		}
	}
	return out
}

// onSegment reports whether both endpoints of e lie on the segment ab.
func onSegment(r *Result, e [2]int, a, b geom.Point) bool {
	for _, vi := range e {
		p := r.Verts[vi]
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if math.Abs(cross) > 1e-9 {
			return false
		}
		dot := (p.X-a.X)*(b.X-a.X) + (p.Y-a.Y)*(b.Y-a.Y)
		if dot < -1e-9 || dot > (b.X-a.X)*(b.X-a.X)+(b.Y-a.Y)*(b.Y-a.Y)+1e-9 {
			return false
		}
	}
	return true
}

func TestDelaunayMeshesUnitSquare(t *testing.T) {
	req := squareRequest(0.25)
	var d Delaunay
	res, err := d.Invoke(req)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(res.Triangles) == 0 {
		t.Fatal("no triangles generated")
	}
	if area := resultArea(res); math.Abs(area-1) > 1e-9 {
		t.Errorf("mesh area = %g; want 1", area)
	}
	used := make(map[int]bool)
	for _, tri := range res.Triangles {
		if a := triangleArea(res.Verts[tri[0]], res.Verts[tri[1]], res.Verts[tri[2]]); a <= 0 {
			t.Errorf("triangle %v has non-positive area %g", tri, a)
		}
		c := centroid(res, tri)
		if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 {
			t.Errorf("triangle centroid (%g, %g) outside the square", c.X, c.Y)
		}
		for _, v := range tri {
			used[v] = true
		}
	}
	// The four input corners survive as mesh vertices.
	for i, corner := range req.Verts {
		found := false
		for v := range used {
			if res.Verts[v].X == corner.X && res.Verts[v].Y == corner.Y {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("corner %d (%g, %g) missing from the mesh", i, corner.X, corner.Y)
		}
	}
	// Every boundary edge of the mesh lies on one of the input segments.
	for _, e := range boundaryEdges(res) {
		ok := false
		for _, s := range req.Segments {
			if onSegment(res, e, req.Verts[s[0]], req.Verts[s[1]]) {
				ok = true
				break
			}
		}
		if !ok {
			t.Errorf("boundary edge (%g,%g)-(%g,%g) is not on an input segment",
				res.Verts[e[0]].X, res.Verts[e[0]].Y, res.Verts[e[1]].X, res.Verts[e[1]].Y)
		}
	}
}

func TestDelaunayRefinesWithSizing(t *testing.T) {
	var d Delaunay
	coarse, err := d.Invoke(squareRequest(0.5))
	if err != nil {
		t.Fatalf("coarse Invoke: %v", err)
	}
	fine, err := d.Invoke(squareRequest(0.1))
	if err != nil {
		t.Fatalf("fine Invoke: %v", err)
	}
	if len(fine.Triangles) <= len(coarse.Triangles) {
		t.Errorf("fine mesh has %d triangles, coarse has %d; want more in the fine mesh",
			len(fine.Triangles), len(coarse.Triangles))
	}
}

// gradedRequest builds the unit-square request with sizes ramping from hmin
// at the boundary to 1 at distance band from it.
func gradedRequest(hmin, band float64) *Request {
	b := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 1, Y: 1}}
	g := field.NewGrid(b, 1)
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			p := g.Point(ix, iy)
			d := math.Min(math.Min(p.X, 1-p.X), math.Min(p.Y, 1-p.Y))
			if d < 0 {
				d = 0
			}
			t := d / band
			if t > 1 {
				t = 1
			}
			g.Data.Set(hmin+(1-hmin)*t, iy, ix)
		}
	}
	return &Request{
		Verts: []geom.Point{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		},
		Segments: [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		Seeds:    []geom.Point{{X: 0.5, Y: 0.5}},
		Sizing:   g,
		HMin:     hmin,
		HMax:     1,
	}
}

func TestDelaunayGradedSizingPlacesInteriorVertices(t *testing.T) {
	// With a fine boundary band and a coarse center, the coarse interior
	// candidates must not be rejected by nearby fine boundary vertices.
	var d Delaunay
	res, err := d.Invoke(gradedRequest(0.1, 0.3))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	used := make(map[int]bool)
	for _, tri := range res.Triangles {
		for _, v := range tri {
			used[v] = true
		}
	}
	interior := 0
	for v := range used {
		p := res.Verts[v]
		if p.X > 1e-9 && p.X < 1-1e-9 && p.Y > 1e-9 && p.Y < 1-1e-9 {
			interior++
		}
	}
	if interior == 0 {
		t.Error("no interior vertices generated")
	}
}

func TestDelaunayRespectsHole(t *testing.T) {
	b := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 3, Y: 3}}
	req := &Request{
		Verts: []geom.Point{
			{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 3}, {X: 0, Y: 3},
			{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2},
		},
		Segments: [][2]int{
			{0, 1}, {1, 2}, {2, 3}, {3, 0},
			{4, 5}, {5, 6}, {6, 7}, {7, 4},
		},
		Seeds:  []geom.Point{{X: 0.5, Y: 0.5}},
		Sizing: constGrid(b, 3, 0.4),
		HMin:   0.4,
		HMax:   3,
	}
	var d Delaunay
	res, err := d.Invoke(req)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if area := resultArea(res); math.Abs(area-8) > 1e-9 {
		t.Errorf("mesh area = %g; want 8 (3x3 square minus 1x1 hole)", area)
	}
	for _, tri := range res.Triangles {
		c := centroid(res, tri)
		if c.X > 1 && c.X < 2 && c.Y > 1 && c.Y < 2 {
			t.Errorf("triangle centroid (%g, %g) inside the hole", c.X, c.Y)
		}
	}
}

func TestInvokeDeterministic(t *testing.T) {
	var d Delaunay
	a, err := d.Invoke(squareRequest(0.2))
	if err != nil {
		t.Fatalf("first Invoke: %v", err)
	}
	b, err := d.Invoke(squareRequest(0.2))
	if err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated Invoke differs (-first +second):\n%s", diff)
	}
}

func TestInvokeRejectsBadRequest(t *testing.T) {
	b := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 1, Y: 1}}
	grid := constGrid(b, 1, 0.5)
	verts := []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	segs := [][2]int{{0, 1}, {1, 2}, {2, 0}}
	seeds := []geom.Point{{X: 0.25, Y: 0.25}}
	cases := []struct {
		name string
		req  *Request
	}{
		{"too few vertices", &Request{
			Verts: verts[:2], Segments: segs, Seeds: seeds, Sizing: grid, HMin: 0.5, HMax: 1,
		}},
		{"too few segments", &Request{
			Verts: verts, Segments: segs[:2], Seeds: seeds, Sizing: grid, HMin: 0.5, HMax: 1,
		}},
		{"no seeds", &Request{
			Verts: verts, Segments: segs, Sizing: grid, HMin: 0.5, HMax: 1,
		}},
		{"nil sizing", &Request{
			Verts: verts, Segments: segs, Seeds: seeds, HMin: 0.5, HMax: 1,
		}},
		{"inverted size bounds", &Request{
			Verts: verts, Segments: segs, Seeds: seeds, Sizing: grid, HMin: 2, HMax: 1,
		}},
		{"segment out of range", &Request{
			Verts: verts, Segments: [][2]int{{0, 1}, {1, 2}, {2, 9}},
			Seeds: seeds, Sizing: grid, HMin: 0.5, HMax: 1,
		}},
		{"degenerate segment", &Request{
			Verts: verts, Segments: [][2]int{{0, 1}, {1, 2}, {2, 2}},
			Seeds: seeds, Sizing: grid, HMin: 0.5, HMax: 1,
		}},
	}
	var d Delaunay
	for _, c := range cases {
		_, err := d.Invoke(c.req)
		if err == nil {
			t.Errorf("%s: Invoke returned nil error", c.name)
			continue
		}
		var ge *GenerationError
		if !errors.As(err, &ge) {
			t.Errorf("%s: error %v is not a *GenerationError", c.name, err)
		}
	}
}
