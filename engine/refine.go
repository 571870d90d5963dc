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

	"github.com/ctessum/geom"
)

// Delaunay is the built-in mesher: sizing-driven point placement followed by
// incremental Delaunay triangulation, midpoint splitting until every input
// segment is conforming, and seed-based selection of the meshed parts.
type Delaunay struct {
	// SpacingFactor scales the minimum allowed distance between generated
	// points relative to the local target size. Zero means 0.75.
	SpacingFactor float64
	// RecoveryPasses bounds the rounds of midpoint splitting used to
	// recover input segments. Zero means 8.
	RecoveryPasses int
}

// Invoke generates the mesh. The request sizing grid is sampled bilinearly;
// boundary segments are subdivided so no subsegment exceeds the local target
// size, interior vertices are laid out row by row at the local spacing, and
// triangles not reachable from a seed without crossing a boundary segment
// are discarded.
func (d *Delaunay) Invoke(req *Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	factor := d.SpacingFactor
	if factor == 0 {
		factor = 0.75
	}
	passes := d.RecoveryPasses
	if passes == 0 {
		passes = 8
	}

	size := func(p geom.Point) float64 {
		s := req.Sizing.At(p)
		if s < req.HMin {
			s = req.HMin
		} else if s > req.HMax {
			s = req.HMax
		}
		return s
	}

	b := pointBounds(req.Verts)
	diameter := math.Hypot(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y)
	if diameter <= 0 {
		return nil, errGenerationf("input vertices are coincident")
	}
	tol := 1e-9 * diameter

	pts := append([]geom.Point{}, req.Verts...)
	occupied := newBucketGrid(factor * req.HMax)
	for _, p := range pts {
		occupied.add(p, size(p))
	}

	// Subdivide every input segment so each piece respects the sizing field
	// at its endpoints and midpoint.
	var constraints [][2]int
	for _, seg := range req.Segments {
		a, bb := pts[seg[0]], pts[seg[1]]
		mid := geom.Point{X: (a.X + bb.X) / 2, Y: (a.Y + bb.Y) / 2}
		target := math.Min(size(mid), math.Min(size(a), size(bb)))
		length := math.Hypot(bb.X-a.X, bb.Y-a.Y)
		n := int(math.Ceil(length / target))
		if n < 1 {
			n = 1
		}
		prev := seg[0]
		for k := 1; k < n; k++ {
			f := float64(k) / float64(n)
			p := geom.Point{X: a.X + f*(bb.X-a.X), Y: a.Y + f*(bb.Y-a.Y)}
			id := len(pts)
			pts = append(pts, p)
			occupied.add(p, size(p))
			constraints = append(constraints, [2]int{prev, id})
			prev = id
		}
		constraints = append(constraints, [2]int{prev, seg[1]})
	}

	// Interior vertices: sweep rows bottom to top, advancing along each row
	// by the local spacing and accepting candidates that keep their distance
	// from every vertex placed so far. The distance test uses the finer of
	// the two local sizes, so a coarse candidate is not blocked by fine
	// boundary vertices half its own spacing away. Rows advance by the
	// finest size seen on the previous row, so fine bands stay covered; the
	// rejection test prunes the excess elsewhere.
	rowStep := factor * size(geom.Point{X: b.Min.X, Y: b.Min.Y})
	for y := b.Min.Y + 0.5*rowStep; y < b.Max.Y; {
		rowMin := req.HMax
		s0 := size(geom.Point{X: b.Min.X, Y: y})
		for x := b.Min.X + 0.5*factor*s0; x < b.Max.X; {
			p := geom.Point{X: x, Y: y}
			s := size(p)
			if s < rowMin {
				rowMin = s
			}
			if !occupied.nearAny(p, s, factor) {
				pts = append(pts, p)
				occupied.add(p, s)
			}
			x += factor * s
		}
		y += 0.87 * factor * rowMin
	}

	// Triangulate all vertices.
	tr := newTriangulation(b)
	vmap := make([]int, len(pts))
	for i, p := range pts {
		vi, err := tr.insert(p, tol)
		if err != nil {
			return nil, err
		}
		vmap[i] = vi
	}

	// Conforming recovery: any input subsegment absent from the
	// triangulation is split at its midpoint until all are present.
	for pass := 0; ; pass++ {
		edgeSet := tr.edges()
		missing := 0
		var next [][2]int
		for _, c := range constraints {
			if edgeSet[undirected(vmap[c[0]], vmap[c[1]])] {
				next = append(next, c)
				continue
			}
			missing++
			a, bb := pts[c[0]], pts[c[1]]
			if math.Hypot(bb.X-a.X, bb.Y-a.Y) < 16*tol {
				return nil, errGenerationf(
					"boundary recovery stalled near (%g, %g); input may need a larger snap tolerance",
					a.X, a.Y)
			}
			mid := geom.Point{X: (a.X + bb.X) / 2, Y: (a.Y + bb.Y) / 2}
			vi, err := tr.insert(mid, tol)
			if err != nil {
				return nil, err
			}
			id := len(pts)
			pts = append(pts, mid)
			vmap = append(vmap, vi)
			next = append(next, [2]int{c[0], id}, [2]int{id, c[1]})
		}
		constraints = next
		if missing == 0 {
			break
		}
		if pass >= passes {
			return nil, errGenerationf("failed to recover %d boundary segments after %d passes",
				missing, passes)
		}
	}

	// Select the meshed parts: flood from each seed's triangle without
	// crossing boundary segments. Everything else, including the super
	// triangle fill and hole interiors, is dropped.
	boundary := make(map[[2]int]bool, len(constraints))
	for _, c := range constraints {
		boundary[undirected(vmap[c[0]], vmap[c[1]])] = true
	}
	keep := make([]bool, len(tr.tris))
	for _, seed := range req.Seeds {
		ti, err := tr.locate(seed)
		if err != nil {
			return nil, errGenerationf("seed (%g, %g) could not be located: %v", seed.X, seed.Y, err)
		}
		if keep[ti] {
			continue
		}
		stack := []int{ti}
		keep[ti] = true
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			tc := tr.tris[c]
			for i := 0; i < 3; i++ {
				nb := tc.n[i]
				if nb < 0 || keep[nb] || tr.tris[nb].dead {
					continue
				}
				if boundary[undirected(tc.v[i], tc.v[(i+1)%3])] {
					continue
				}
				keep[nb] = true
				stack = append(stack, nb)
			}
		}
	}

	var out [][3]int
	for i, tc := range tr.tris {
		if keep[i] && !tc.dead {
			out = append(out, tc.v)
		}
	}
	if len(out) == 0 {
		return nil, errGenerationf("mesher produced no triangles inside the seeded parts")
	}
	return &Result{Verts: tr.pts, Triangles: out}, nil
}

func pointBounds(pts []geom.Point) *geom.Bounds {
	b := &geom.Bounds{
		Min: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, p := range pts {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// bucketGrid is a uniform hash grid over points tagged with their local
// target spacing. The cell size must be at least the largest query radius.
type bucketGrid struct {
	cs    float64
	cells map[[2]int64][]spacedPoint
}

type spacedPoint struct {
	p geom.Point
	s float64
}

func newBucketGrid(cellSize float64) *bucketGrid {
	return &bucketGrid{cs: cellSize, cells: make(map[[2]int64][]spacedPoint)}
}

func (g *bucketGrid) cell(p geom.Point) [2]int64 {
	return [2]int64{int64(math.Floor(p.X / g.cs)), int64(math.Floor(p.Y / g.cs))}
}

func (g *bucketGrid) add(p geom.Point, s float64) {
	c := g.cell(p)
	g.cells[c] = append(g.cells[c], spacedPoint{p: p, s: s})
}

// nearAny reports whether some stored point q lies within
// factor*min(s, q.s) of p. Pairing the candidate's spacing with the stored
// point's keeps fine and coarse regions from rejecting each other's points.
func (g *bucketGrid) nearAny(p geom.Point, s, factor float64) bool {
	c := g.cell(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, q := range g.cells[[2]int64{c[0] + dx, c[1] + dy}] {
				r := factor * math.Min(s, q.s) * 0.999
				if math.Hypot(q.p.X-p.X, q.p.Y-p.Y) < r {
					return true
				}
			}
		}
	}
	return false
}
