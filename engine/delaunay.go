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
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// triangulation is an incremental Bowyer-Watson Delaunay triangulation with
// per-triangle neighbor links. Vertices 0..2 are the enclosing super
// triangle; all other vertices are inserted one at a time.
type triangulation struct {
	pts  []geom.Point
	tris []tri
	last int // walk start hint: last triangle touched
	// epsArea is the absolute tolerance for orientation tests during the
	// linear-scan fallback of point location.
	epsArea float64
}

// tri stores vertex indices in counter-clockwise order. n[i] is the
// triangle across edge (v[i], v[(i+1)%3]), or -1 at the hull.
type tri struct {
	v    [3]int
	n    [3]int
	dead bool
}

// newTriangulation creates a triangulation whose super triangle comfortably
// encloses b.
func newTriangulation(b *geom.Bounds) *triangulation {
	cx := (b.Min.X + b.Max.X) / 2
	cy := (b.Min.Y + b.Max.Y) / 2
	d := math.Max(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y)
	if d <= 0 {
		d = 1
	}
	r := 8 * d
	t := &triangulation{
		pts: []geom.Point{
			{X: cx, Y: cy + 2*r},
			{X: cx - math.Sqrt(3)*r, Y: cy - r},
			{X: cx + math.Sqrt(3)*r, Y: cy - r},
		},
		epsArea: 1e-12 * d * d,
	}
	t.tris = []tri{{v: [3]int{0, 1, 2}, n: [3]int{-1, -1, -1}}}
	return t
}

func orient(a, b, p geom.Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// inCircum reports whether p lies strictly inside the circumcircle of the
// counter-clockwise triangle (a, b, c). Cocircular points count as outside,
// which keeps cavities simply connected on regular point patterns.
func inCircum(a, b, c, p geom.Point) bool {
	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y
	det := (ax*ax+ay*ay)*(bx*cy-cx*by) +
		(bx*bx+by*by)*(cx*ay-ax*cy) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	return det > 0
}

// locate finds an alive triangle containing p by walking from the last
// touched triangle, falling back to a linear scan if the walk cycles on a
// degenerate configuration.
func (t *triangulation) locate(p geom.Point) (int, error) {
	cur := t.last
	if cur < 0 || cur >= len(t.tris) || t.tris[cur].dead {
		cur = -1
		for i := len(t.tris) - 1; i >= 0; i-- {
			if !t.tris[i].dead {
				cur = i
				break
			}
		}
		if cur < 0 {
			return 0, errGenerationf("triangulation is empty")
		}
	}
	for steps := 0; steps < 3*len(t.tris)+16; steps++ {
		tr := &t.tris[cur]
		next := -2
		for i := 0; i < 3; i++ {
			a := t.pts[tr.v[i]]
			b := t.pts[tr.v[(i+1)%3]]
			if orient(a, b, p) < 0 {
				next = tr.n[i]
				break
			}
		}
		if next == -2 {
			t.last = cur
			return cur, nil
		}
		if next == -1 {
			return 0, errGenerationf("point (%g, %g) escapes the super triangle", p.X, p.Y)
		}
		cur = next
	}
	// Degenerate walk; scan every alive triangle with a tolerance.
	for i, tr := range t.tris {
		if tr.dead {
			continue
		}
		inside := true
		for k := 0; k < 3; k++ {
			if orient(t.pts[tr.v[k]], t.pts[tr.v[(k+1)%3]], p) < -t.epsArea {
				inside = false
				break
			}
		}
		if inside {
			t.last = i
			return i, nil
		}
	}
	return 0, errGenerationf("point location failed for (%g, %g)", p.X, p.Y)
}

// insert adds p to the triangulation and returns its vertex index. If p
// coincides with an existing vertex of its containing triangle (within tol),
// that vertex's index is returned instead.
func (t *triangulation) insert(p geom.Point, tol float64) (int, error) {
	start, err := t.locate(p)
	if err != nil {
		return 0, err
	}
	for _, vi := range t.tris[start].v {
		v := t.pts[vi]
		if math.Hypot(v.X-p.X, v.Y-p.Y) <= tol {
			return vi, nil
		}
	}

	// Cavity: the connected set of triangles whose circumcircle contains p.
	bad := map[int]bool{start: true}
	stack := []int{start}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range t.tris[c].n {
			if nb < 0 || bad[nb] || t.tris[nb].dead {
				continue
			}
			tr := t.tris[nb]
			if inCircum(t.pts[tr.v[0]], t.pts[tr.v[1]], t.pts[tr.v[2]], p) {
				bad[nb] = true
				stack = append(stack, nb)
			}
		}
	}

	// Cavity boundary: edges of cavity triangles whose neighbor is outside
	// the cavity, kept in the cavity triangle's direction so the fan
	// triangles come out counter-clockwise.
	type bedge struct {
		a, b, outer int
	}
	cavity := make([]int, 0, len(bad))
	for c := range bad {
		cavity = append(cavity, c)
	}
	sort.Ints(cavity) // deterministic output independent of map order
	var boundary []bedge
	for _, c := range cavity {
		tr := t.tris[c]
		for i := 0; i < 3; i++ {
			nb := tr.n[i]
			if nb < 0 || !bad[nb] {
				boundary = append(boundary, bedge{a: tr.v[i], b: tr.v[(i+1)%3], outer: nb})
			}
		}
		t.tris[c].dead = true
	}

	pi := len(t.pts)
	t.pts = append(t.pts, p)

	byFirst := make(map[int]int, len(boundary))
	bySecond := make(map[int]int, len(boundary))
	created := make([]int, len(boundary))
	for k, e := range boundary {
		idx := len(t.tris)
		t.tris = append(t.tris, tri{v: [3]int{e.a, e.b, pi}, n: [3]int{e.outer, -1, -1}})
		created[k] = idx
		byFirst[e.a] = idx
		bySecond[e.b] = idx
		if e.outer >= 0 {
			out := &t.tris[e.outer]
			for j := 0; j < 3; j++ {
				if (out.v[j] == e.b && out.v[(j+1)%3] == e.a) ||
					(out.v[j] == e.a && out.v[(j+1)%3] == e.b) {
					out.n[j] = idx
					break
				}
			}
		}
	}
	for k, e := range boundary {
		idx := created[k]
		t.tris[idx].n[1] = byFirst[e.b]   // edge (b, p)
		t.tris[idx].n[2] = bySecond[e.a]  // edge (p, a)
	}
	t.last = created[0]
	return pi, nil
}

// edges returns the set of undirected edges of all alive triangles.
func (t *triangulation) edges() map[[2]int]bool {
	set := make(map[[2]int]bool)
	for _, tr := range t.tris {
		if tr.dead {
			continue
		}
		for i := 0; i < 3; i++ {
			set[undirected(tr.v[i], tr.v[(i+1)%3])] = true
		}
	}
	return set
}

func undirected(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}
