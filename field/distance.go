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

package field

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/dtcc-platform/dtcc/pslg"
)

// EdgeIndex answers nearest-edge distance queries against a PSLG using an
// rtree over segment bounding boxes, so a grid-node query touches only the
// segments near the node instead of the whole graph. Each PSLG edge is stored
// as a two-point geom.LineString.
type EdgeIndex struct {
	tree *rtree.Rtree
	// diameter bounds the expanding search so a query over an empty
	// neighborhood falls back to one full-extent search.
	diameter float64
}

// NewEdgeIndex indexes all edges of p.
func NewEdgeIndex(p *pslg.PSLG) *EdgeIndex {
	ix := &EdgeIndex{tree: rtree.NewTree(25, 50)}
	for _, e := range p.Edges {
		ix.tree.Insert(geom.LineString{p.Verts[e.A], p.Verts[e.B]})
	}
	b := p.Bounds
	ix.diameter = math.Hypot(b.Max.X-b.Min.X, b.Max.Y-b.Min.Y)
	return ix
}

// Distance returns the Euclidean distance from pt to the nearest indexed
// segment. r0 seeds the search radius, which doubles until candidates are
// found; once some segment is within the search box the true minimum over
// the box is exact, because any closer segment would intersect the box too.
// When several segments are equidistant any one wins; only the distance is
// used downstream.
func (ix *EdgeIndex) Distance(pt geom.Point, r0 float64) float64 {
	r := r0
	if r <= 0 {
		r = ix.diameter / 64
	}
	for {
		hits := ix.tree.SearchIntersect(&geom.Bounds{
			Min: geom.Point{X: pt.X - r, Y: pt.Y - r},
			Max: geom.Point{X: pt.X + r, Y: pt.Y + r},
		})
		best := math.Inf(1)
		for _, h := range hits {
			if d := h.(geom.LineString).Distance(pt); d < best {
				best = d
			}
		}
		if best <= r {
			return best
		}
		if r > 2*ix.diameter {
			// The whole graph fits in the search box; best is final even
			// if infinite neighborhoods were empty before.
			return best
		}
		if !math.IsInf(best, 1) {
			r = best
		} else {
			r *= 2
		}
	}
}

// Distances fills g with the distance from each grid node to the nearest
// edge of p.
func Distances(p *pslg.PSLG, g *Grid) {
	ix := NewEdgeIndex(p)
	r0 := math.Max(g.Dx, g.Dy)
	for iy := 0; iy < g.Ny; iy++ {
		for ixx := 0; ixx < g.Nx; ixx++ {
			g.Data.Set(ix.Distance(g.Point(ixx, iy), r0), iy, ixx)
		}
	}
}
