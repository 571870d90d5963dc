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

// Package pslg builds planar straight-line graphs from labeled region
// polygons. Vertices are snapped to a tolerance, exterior rings are oriented
// counter-clockwise and holes clockwise, and boundary segments shared between
// two regions are recorded once with both adjacent labels.
package pslg

import (
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// Polygon is one caller-supplied region: an exterior ring, optional hole
// rings, and the label identifying the region for resolution requests and
// output triangle labeling. Rings may be open or closed (a repeated closing
// vertex is removed).
type Polygon struct {
	Exterior geom.Path
	Holes    []geom.Path
	Label    string
}

// Edge is an oriented PSLG segment between two vertex indices. Regions holds
// the labels of the one or two regions adjacent to the segment; Regions[1]
// is empty for segments bounding a single region.
type Edge struct {
	A, B    int
	Regions [2]string
}

// Loop is one closed vertex cycle of the PSLG. Verts is implicitly closed
// (the last vertex connects back to the first).
type Loop struct {
	Verts []int
	Label string
	Hole  bool
	Depth int
}

// region groups the loops of one input polygon.
type region struct {
	label    string
	exterior int   // loop index
	holes    []int // loop indices
	depth    int   // nesting depth of the exterior loop
}

// PSLG is a planar straight-line graph: snapped vertices, non-crossing
// edges with region adjacency, and the closed loops they came from.
type PSLG struct {
	Verts  []geom.Point
	Edges  []Edge
	Loops  []Loop
	Bounds *geom.Bounds

	tol     float64
	regions []region // sorted by depth, deepest first
}

// Tol returns the snapping tolerance the graph was built with.
func (p *PSLG) Tol() float64 { return p.tol }

// Build constructs a PSLG from the given region polygons.
// Vertices closer than tol are merged. It fails with a *GeometryError if a
// polygon has fewer than three distinct vertices after snapping, if any two
// non-adjacent edges cross, or if a region label is reused by more than one
// polygon.
func Build(polys []Polygon, tol float64) (*PSLG, error) {
	if len(polys) == 0 {
		return nil, errGeometryf("no input polygons")
	}
	if tol <= 0 {
		return nil, errGeometryf("snap tolerance must be positive, got %g", tol)
	}
	p := &PSLG{tol: tol}
	snap := newSnapper(tol)

	seen := make(map[string]bool)
	type edgeRef struct {
		index int
		label string
	}
	edgeIndex := make(map[[2]int]edgeRef)

	addRing := func(ring geom.Path, label string, hole bool) (int, error) {
		verts, err := snap.ring(ring, &p.Verts)
		if err != nil {
			return 0, err
		}
		loopIdx := len(p.Loops)
		p.Loops = append(p.Loops, Loop{Verts: verts, Label: label, Hole: hole})
		for i := range verts {
			a := verts[i]
			b := verts[(i+1)%len(verts)]
			key := undirected(a, b)
			if ref, ok := edgeIndex[key]; ok {
				e := &p.Edges[ref.index]
				if e.Regions[1] != "" {
					return 0, errGeometryf("segment %d-%d shared by more than two regions", a, b)
				}
				if ref.label == label {
					return 0, errGeometryf("region %q traverses segment %d-%d twice", label, a, b)
				}
				e.Regions[1] = label
				continue
			}
			edgeIndex[key] = edgeRef{index: len(p.Edges), label: label}
			p.Edges = append(p.Edges, Edge{A: a, B: b, Regions: [2]string{label}})
		}
		return loopIdx, nil
	}

	for _, poly := range polys {
		if poly.Label == "" {
			return nil, errGeometryf("polygon with empty region label")
		}
		if seen[poly.Label] {
			return nil, errGeometryf("region label %q used by more than one polygon", poly.Label)
		}
		seen[poly.Label] = true

		ext := orientRing(poly.Exterior, true)
		extIdx, err := addRing(ext, poly.Label, false)
		if err != nil {
			return nil, err
		}
		r := region{label: poly.Label, exterior: extIdx}
		for _, h := range poly.Holes {
			hIdx, err := addRing(orientRing(h, false), poly.Label, true)
			if err != nil {
				return nil, err
			}
			r.holes = append(r.holes, hIdx)
		}
		p.regions = append(p.regions, r)
	}

	if err := p.checkCrossings(); err != nil {
		return nil, err
	}
	p.computeBounds()
	p.computeDepths()
	return p, nil
}

// orientRing drops a duplicated closing vertex and forces the winding:
// counter-clockwise for exterior rings, clockwise for holes.
func orientRing(ring geom.Path, ccw bool) geom.Path {
	r := append(geom.Path{}, ring...)
	if len(r) >= 2 {
		a, b := r[0], r[len(r)-1]
		if a.X == b.X && a.Y == b.Y {
			r = r[:len(r)-1]
		}
	}
	if (ringArea(r) > 0) != ccw {
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
	}
	return r
}

// ringArea is the signed area of a ring: positive for counter-clockwise.
func ringArea(r geom.Path) float64 {
	var a float64
	for i := range r {
		j := (i + 1) % len(r)
		a += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return a / 2
}

// snapper merges vertices that fall in the same tolerance-sized bucket or an
// adjacent one. The first vertex seen in a neighborhood keeps its exact
// coordinates.
type snapper struct {
	tol     float64
	buckets map[[2]int64]int
}

func newSnapper(tol float64) *snapper {
	return &snapper{tol: tol, buckets: make(map[[2]int64]int)}
}

func (s *snapper) lookup(pt geom.Point, verts []geom.Point) (int, bool) {
	bx := int64(math.Floor(pt.X / s.tol))
	by := int64(math.Floor(pt.Y / s.tol))
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			if i, ok := s.buckets[[2]int64{bx + dx, by + dy}]; ok {
				v := verts[i]
				if math.Hypot(v.X-pt.X, v.Y-pt.Y) <= s.tol {
					return i, true
				}
			}
		}
	}
	return 0, false
}

// ring snaps every vertex of the ring, appending new vertices to verts, and
// returns the loop as vertex indices with consecutive duplicates removed.
func (s *snapper) ring(ring geom.Path, verts *[]geom.Point) ([]int, error) {
	var out []int
	for _, pt := range ring {
		i, ok := s.lookup(pt, *verts)
		if !ok {
			i = len(*verts)
			*verts = append(*verts, pt)
			bx := int64(math.Floor(pt.X / s.tol))
			by := int64(math.Floor(pt.Y / s.tol))
			s.buckets[[2]int64{bx, by}] = i
		}
		if len(out) > 0 && out[len(out)-1] == i {
			continue // collapsed onto the previous vertex
		}
		out = append(out, i)
	}
	if len(out) >= 2 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	if len(out) < 3 {
		return nil, errGeometryf("ring degenerates to %d distinct vertices after snapping", len(out))
	}
	return out, nil
}

func undirected(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

// checkCrossings rejects the graph if any two edges intersect anywhere other
// than a shared endpoint. Crossings created by snapping are caught here too,
// because the test runs on the snapped coordinates.
func (p *PSLG) checkCrossings() error {
	// Sweep over edges ordered by minimum x, pruning pairs whose x-extents
	// are disjoint.
	type span struct {
		e          int
		xmin, xmax float64
	}
	spans := make([]span, len(p.Edges))
	for i, e := range p.Edges {
		a, b := p.Verts[e.A], p.Verts[e.B]
		spans[i] = span{e: i, xmin: math.Min(a.X, b.X), xmax: math.Max(a.X, b.X)}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].xmin < spans[j].xmin })
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			if spans[j].xmin > spans[i].xmax {
				break
			}
			e1, e2 := p.Edges[spans[i].e], p.Edges[spans[j].e]
			if s, p1, p2, shared := sharedVertex(e1, e2); shared {
				// Edges meeting at a vertex still clash when they run
				// collinear in the same direction, as with an interface
				// segment the two polygons subdivide differently.
				if cross(p.Verts[s], p.Verts[p1], p.Verts[p2]) == 0 &&
					dot(p.Verts[s], p.Verts[p1], p.Verts[p2]) > 0 {
					return errGeometryf("edges %d-%d and %d-%d overlap beyond their shared vertex %d",
						e1.A, e1.B, e2.A, e2.B, s)
				}
				continue
			}
			if segmentsCross(p.Verts[e1.A], p.Verts[e1.B], p.Verts[e2.A], p.Verts[e2.B]) {
				return errGeometryf("edges %d-%d and %d-%d intersect",
					e1.A, e1.B, e2.A, e2.B)
			}
		}
	}
	return nil
}

// segmentsCross reports whether segments ab and cd intersect, including
// collinear overlap and endpoint-on-interior touches.
func segmentsCross(a, b, c, d geom.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(c, d, a) {
		return true
	}
	if d2 == 0 && onSegment(c, d, b) {
		return true
	}
	if d3 == 0 && onSegment(a, b, c) {
		return true
	}
	if d4 == 0 && onSegment(a, b, d) {
		return true
	}
	return false
}

func cross(o, a, b geom.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func dot(o, a, b geom.Point) float64 {
	return (a.X-o.X)*(b.X-o.X) + (a.Y-o.Y)*(b.Y-o.Y)
}

// sharedVertex returns the vertex two edges have in common and their other
// endpoints. Edges never share both vertices; duplicate segments merge into
// one edge during construction.
func sharedVertex(e1, e2 Edge) (s, p1, p2 int, ok bool) {
	switch {
	case e1.A == e2.A:
		return e1.A, e1.B, e2.B, true
	case e1.A == e2.B:
		return e1.A, e1.B, e2.A, true
	case e1.B == e2.A:
		return e1.B, e1.A, e2.B, true
	case e1.B == e2.B:
		return e1.B, e1.A, e2.A, true
	}
	return 0, 0, 0, false
}

// onSegment reports whether p, known collinear with ab, lies within the
// closed segment ab.
func onSegment(a, b, p geom.Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

func (p *PSLG) computeBounds() {
	b := &geom.Bounds{
		Min: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, v := range p.Verts {
		b.Min.X = math.Min(b.Min.X, v.X)
		b.Min.Y = math.Min(b.Min.Y, v.Y)
		b.Max.X = math.Max(b.Max.X, v.X)
		b.Max.Y = math.Max(b.Max.Y, v.Y)
	}
	p.Bounds = b
}

// LoopPath returns the closed coordinate ring of loop i.
func (p *PSLG) LoopPath(i int) geom.Path {
	l := p.Loops[i]
	path := make(geom.Path, len(l.Verts))
	for k, v := range l.Verts {
		path[k] = p.Verts[v]
	}
	return path
}
