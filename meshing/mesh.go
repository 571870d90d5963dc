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

package meshing

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"

	"github.com/dtcc-platform/dtcc/engine"
	"github.com/dtcc-platform/dtcc/pslg"
)

// Mesh is a labeled triangular mesh. Triangles are vertex index triples with
// counter-clockwise winding; Regions holds one region label per triangle.
// The mesh is owned by the caller once returned.
type Mesh struct {
	Vertices  []geom.Point
	Triangles [][3]int
	Regions   []string
}

// ValidationError reports a mesh that violates the edge-manifold invariant
// or references invalid vertices. It signals an internal inconsistency in
// the generation pipeline, not a user input error.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "meshing: invalid mesh: " + e.Reason
}

// adapt converts raw mesher output into a Mesh: degenerate triangles are
// dropped, winding is normalized to counter-clockwise, every triangle is
// labeled with the region containing its centroid, and vertices no triangle
// references are pruned with indices compacted.
func adapt(raw *engine.Result, g *pslg.PSLG, areaThreshold float64) *Mesh {
	var tris [][3]int
	var regions []string
	for _, t := range raw.Triangles {
		a := raw.Verts[t[0]]
		b := raw.Verts[t[1]]
		c := raw.Verts[t[2]]
		area := triArea(a, b, c)
		if math.Abs(area) <= areaThreshold {
			continue
		}
		if area < 0 {
			t[1], t[2] = t[2], t[1]
		}
		cen := geom.Point{X: (a.X + b.X + c.X) / 3, Y: (a.Y + b.Y + c.Y) / 3}
		label := g.RegionAt(cen)
		if label == "" {
			// Centroid landed on a boundary within ray-cast precision; fall
			// back to the region of the nearest PSLG edge.
			label = g.NearestRegion(cen)
		}
		tris = append(tris, t)
		regions = append(regions, label)
	}

	remap := make([]int, len(raw.Verts))
	for i := range remap {
		remap[i] = -1
	}
	var verts []geom.Point
	for ti := range tris {
		for k := 0; k < 3; k++ {
			v := tris[ti][k]
			if remap[v] < 0 {
				remap[v] = len(verts)
				verts = append(verts, raw.Verts[v])
			}
			tris[ti][k] = remap[v]
		}
	}
	return &Mesh{Vertices: verts, Triangles: tris, Regions: regions}
}

// triArea is the signed area of triangle abc, positive for counter-clockwise.
func triArea(a, b, c geom.Point) float64 {
	return ((b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)) / 2
}

// Validate checks the mesh invariants: every triangle references valid
// vertices, no triangle is inverted, and the mesh is edge-manifold (each
// edge used by at most two triangles, with consistent winding so no directed
// edge repeats).
func (m *Mesh) Validate() error {
	if len(m.Regions) != len(m.Triangles) {
		return &ValidationError{Reason: fmt.Sprintf(
			"%d region labels for %d triangles", len(m.Regions), len(m.Triangles))}
	}
	directed := make(map[[2]int]int)
	for ti, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			if t[k] < 0 || t[k] >= len(m.Vertices) {
				return &ValidationError{Reason: fmt.Sprintf(
					"triangle %d references vertex %d of %d", ti, t[k], len(m.Vertices))}
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			return &ValidationError{Reason: fmt.Sprintf("triangle %d repeats a vertex", ti)}
		}
		for k := 0; k < 3; k++ {
			e := [2]int{t[k], t[(k+1)%3]}
			directed[e]++
			if directed[e] > 1 {
				return &ValidationError{Reason: fmt.Sprintf(
					"directed edge %d-%d used twice; winding is inconsistent or the mesh is non-manifold",
					e[0], e[1])}
			}
		}
	}
	// With unique directed edges, an undirected edge appears once (boundary)
	// or twice in opposite directions (interior). Three or more uses would
	// have repeated a direction.
	return nil
}

// Area is the total triangle area of the mesh.
func (m *Mesh) Area() float64 {
	var sum float64
	for _, t := range m.Triangles {
		sum += triArea(m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]])
	}
	return sum
}

// RegionArea is the total area of triangles labeled with the given region.
func (m *Mesh) RegionArea(label string) float64 {
	var sum float64
	for i, t := range m.Triangles {
		if m.Regions[i] == label {
			sum += triArea(m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]])
		}
	}
	return sum
}

// RegionHistogram counts triangles per region label.
func (m *Mesh) RegionHistogram() map[string]int {
	h := make(map[string]int)
	for _, r := range m.Regions {
		h[r]++
	}
	return h
}

// BoundaryEdgeCount returns how many undirected edges belong to exactly one
// triangle.
func (m *Mesh) BoundaryEdgeCount() int {
	use := make(map[[2]int]int)
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			use[[2]int{a, b}]++
		}
	}
	n := 0
	for _, c := range use {
		if c == 1 {
			n++
		}
	}
	return n
}
