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
	"math"
	"sort"

	"github.com/ctessum/geom"
)

// computeDepths assigns each loop a nesting depth: the number of other loops
// containing a sample point taken just inside the loop near its first vertex.
// Sampling near a vertex instead of at the centroid avoids misclassifying an
// outer loop whose centroid falls inside an inner ring.
func (p *PSLG) computeDepths() {
	samples := make([]geom.Point, len(p.Loops))
	for i := range p.Loops {
		samples[i] = p.samplePointInside(i)
	}
	for i := range p.Loops {
		depth := 0
		for j := range p.Loops {
			if j == i {
				continue
			}
			if p.loopContains(j, samples[i]) {
				depth++
			}
		}
		p.Loops[i].Depth = depth
	}
	for ri := range p.regions {
		p.regions[ri].depth = p.Loops[p.regions[ri].exterior].Depth
	}
	sort.SliceStable(p.regions, func(i, j int) bool {
		return p.regions[i].depth > p.regions[j].depth
	})
}

// samplePointInside returns a point inside loop i, biased toward the first
// vertex so that for non-overlapping rings it cannot land inside a nested
// inner loop.
func (p *PSLG) samplePointInside(i int) geom.Point {
	ring := p.LoopPath(i)
	c := ringCentroid(ring)
	v0 := ring[0]
	const eps = 1e-3
	return geom.Point{
		X: c.X + (v0.X-c.X)*(1-eps),
		Y: c.Y + (v0.Y-c.Y)*(1-eps),
	}
}

// ringCentroid is the area centroid of a simple ring, falling back to the
// vertex average when the ring is degenerate.
func ringCentroid(r geom.Path) geom.Point {
	var a2, cx, cy float64
	for i := range r {
		j := (i + 1) % len(r)
		c := r[i].X*r[j].Y - r[j].X*r[i].Y
		a2 += c
		cx += (r[i].X + r[j].X) * c
		cy += (r[i].Y + r[j].Y) * c
	}
	if math.Abs(a2) < 1e-30 {
		var sx, sy float64
		for _, v := range r {
			sx += v.X
			sy += v.Y
		}
		n := float64(len(r))
		return geom.Point{X: sx / n, Y: sy / n}
	}
	a := a2 / 2
	return geom.Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// loopContains is an even-odd ray cast against loop i. Points on the
// boundary count as outside.
func (p *PSLG) loopContains(i int, pt geom.Point) bool {
	l := p.Loops[i]
	inside := false
	for k := range l.Verts {
		a := p.Verts[l.Verts[k]]
		b := p.Verts[l.Verts[(k+1)%len(l.Verts)]]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xin := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if xin > pt.X {
				inside = !inside
			}
		}
	}
	return inside
}

// RegionAt returns the label of the region whose interior contains pt:
// the deepest-nested polygon that contains the point outside its holes.
// The empty string means the point lies in no region.
func (p *PSLG) RegionAt(pt geom.Point) string {
	for _, r := range p.regions {
		if !p.loopContains(r.exterior, pt) {
			continue
		}
		inHole := false
		for _, h := range r.holes {
			if p.loopContains(h, pt) {
				inHole = true
				break
			}
		}
		if !inHole {
			return r.label
		}
	}
	return ""
}

// Row precomputes the x-crossings of every loop with the horizontal line at
// y, so repeated classification queries along one grid row cost a binary
// search per loop instead of a full edge scan.
type Row struct {
	p         *PSLG
	crossings [][]float64 // per loop, sorted ascending
}

// Row returns a classification index for the horizontal line at y.
func (p *PSLG) Row(y float64) *Row {
	r := &Row{p: p, crossings: make([][]float64, len(p.Loops))}
	for i, l := range p.Loops {
		var xs []float64
		for k := range l.Verts {
			a := p.Verts[l.Verts[k]]
			b := p.Verts[l.Verts[(k+1)%len(l.Verts)]]
			if (a.Y > y) != (b.Y > y) {
				xs = append(xs, (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X)
			}
		}
		sort.Float64s(xs)
		r.crossings[i] = xs
	}
	return r
}

// inside reports whether x is inside loop i on this row: an odd number of
// crossings strictly to the right of x.
func (r *Row) inside(i int, x float64) bool {
	xs := r.crossings[i]
	n := len(xs) - sort.SearchFloat64s(xs, x)
	// SearchFloat64s finds the first crossing >= x; a crossing exactly at x
	// lies on the boundary, which counts as outside, matching RegionAt.
	for n > 0 && xs[len(xs)-n] == x {
		n--
	}
	return n%2 == 1
}

// RegionAt is the row-indexed equivalent of PSLG.RegionAt for a point
// (x, rowY).
func (r *Row) RegionAt(x float64) string {
	for _, reg := range r.p.regions {
		if !r.inside(reg.exterior, x) {
			continue
		}
		inHole := false
		for _, h := range reg.holes {
			if r.inside(h, x) {
				inHole = true
				break
			}
		}
		if !inHole {
			return reg.label
		}
	}
	return ""
}

// NearestRegion returns the label adjacent to the PSLG edge closest to pt.
// It is the fallback for points that even-odd classification cannot place
// (numerical boundary cases). When the nearest edge separates two regions
// the first recorded label wins; only callers resolving boundary-straddling
// points reach this, so either choice is consistent downstream.
func (p *PSLG) NearestRegion(pt geom.Point) string {
	best := math.Inf(1)
	label := ""
	for _, e := range p.Edges {
		d := SegmentDistance(pt, p.Verts[e.A], p.Verts[e.B])
		if d < best {
			best = d
			label = e.Regions[0]
		}
	}
	return label
}

// SegmentDistance is the Euclidean distance from p to the closed segment ab.
func SegmentDistance(p, a, b geom.Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	wx, wy := p.X-a.X, p.Y-a.Y
	denom := vx*vx + vy*vy
	if denom == 0 {
		return math.Hypot(wx, wy)
	}
	t := (wx*vx + wy*vy) / denom
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(p.X-(a.X+t*vx), p.Y-(a.Y+t*vy))
}

// SeedPoints returns one point per region, inside the region's exterior ring
// but outside its holes and outside the exterior rings of regions nested
// directly within it. These are the part markers handed to the mesher.
func (p *PSLG) SeedPoints() []geom.Point {
	seeds := make([]geom.Point, 0, len(p.regions))
	for _, r := range p.regions {
		// Children: the region's own holes plus exteriors of regions nested
		// one level deeper inside this region.
		children := append([]int{}, r.holes...)
		for _, o := range p.regions {
			if o.exterior == r.exterior {
				continue
			}
			if o.depth == r.depth+1 &&
				p.loopContains(r.exterior, p.samplePointInside(o.exterior)) {
				children = append(children, o.exterior)
			}
		}
		seeds = append(seeds, p.seedExcluding(r.exterior, children))
	}
	return seeds
}

// seedExcluding finds a point inside loop parent but outside all child
// loops. It tries samples biased from the centroid toward each vertex, then
// falls back to a coarse grid search over the parent's bounding box.
func (p *PSLG) seedExcluding(parent int, children []int) geom.Point {
	ok := func(pt geom.Point) bool {
		if !p.loopContains(parent, pt) {
			return false
		}
		for _, c := range children {
			if p.loopContains(c, pt) {
				return false
			}
		}
		return true
	}
	ring := p.LoopPath(parent)
	c := ringCentroid(ring)
	for _, eps := range []float64{1e-3, 5e-2, 1.5e-1, 3.5e-1} {
		for _, v := range ring {
			pt := geom.Point{
				X: c.X + (v.X-c.X)*(1-eps),
				Y: c.Y + (v.Y-c.Y)*(1-eps),
			}
			if ok(pt) {
				return pt
			}
		}
	}
	if ok(c) {
		return c
	}
	var xmin, xmax, ymin, ymax = math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for _, v := range ring {
		xmin = math.Min(xmin, v.X)
		xmax = math.Max(xmax, v.X)
		ymin = math.Min(ymin, v.Y)
		ymax = math.Max(ymax, v.Y)
	}
	const n = 32
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pt := geom.Point{
				X: xmin + (float64(i)+0.5)/n*(xmax-xmin),
				Y: ymin + (float64(j)+0.5)/n*(ymax-ymin),
			}
			if ok(pt) {
				return pt
			}
		}
	}
	// Last resort: first vertex nudged toward the centroid.
	return geom.Point{X: 0.9*ring[0].X + 0.1*c.X, Y: 0.9*ring[0].Y + 0.1*c.Y}
}
