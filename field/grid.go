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

// Package field builds the background sizing field for mesh generation:
// a regular grid of distances to the nearest domain edge, blended into
// local target edge lengths.
package field

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Node count limits per grid axis. The lower limit keeps the edge band
// resolved for tiny domains; the upper limit bounds memory for very fine
// global sizes.
const (
	minNodes = 32
	maxNodes = 512
)

// Grid is a regular background grid of scalar node values covering an
// axis-aligned domain. Data has shape [Ny, Nx]; node (ix, iy) sits at
// (X0+ix*Dx, Y0+iy*Dy). A Grid is request-scoped working state: it is
// created for one meshing call and discarded afterwards.
type Grid struct {
	X0, Y0 float64
	Dx, Dy float64
	Nx, Ny int
	Data   *sparse.DenseArray
}

// NewGrid creates a zero-valued grid covering b plus one cell of margin on
// every side, with node spacing derived from the global target size maxh
// (maxh/4, adjusted so each axis carries between 32 and 512 nodes).
func NewGrid(b *geom.Bounds, maxh float64) *Grid {
	h := maxh / 4
	x0, y0 := b.Min.X-h, b.Min.Y-h
	w := b.Max.X - b.Min.X + 2*h
	ht := b.Max.Y - b.Min.Y + 2*h

	axis := func(extent float64) (int, float64) {
		n := int(math.Ceil(extent/h)) + 1
		if n < minNodes {
			n = minNodes
		} else if n > maxNodes {
			n = maxNodes
		}
		return n, extent / float64(n-1)
	}
	nx, dx := axis(w)
	ny, dy := axis(ht)
	return &Grid{
		X0: x0, Y0: y0,
		Dx: dx, Dy: dy,
		Nx: nx, Ny: ny,
		Data: sparse.ZerosDense(ny, nx),
	}
}

// Point returns the coordinates of node (ix, iy).
func (g *Grid) Point(ix, iy int) geom.Point {
	return geom.Point{X: g.X0 + float64(ix)*g.Dx, Y: g.Y0 + float64(iy)*g.Dy}
}

// At bilinearly interpolates the grid value at p, clamping p to the grid
// extent so queries on the margin return the border value.
func (g *Grid) At(p geom.Point) float64 {
	fx := (p.X - g.X0) / g.Dx
	fy := (p.Y - g.Y0) / g.Dy
	fx = math.Max(0, math.Min(fx, float64(g.Nx-1)))
	fy = math.Max(0, math.Min(fy, float64(g.Ny-1)))
	ix := int(fx)
	iy := int(fy)
	if ix > g.Nx-2 {
		ix = g.Nx - 2
	}
	if iy > g.Ny-2 {
		iy = g.Ny - 2
	}
	tx := fx - float64(ix)
	ty := fy - float64(iy)
	v00 := g.Data.Get(iy, ix)
	v10 := g.Data.Get(iy, ix+1)
	v01 := g.Data.Get(iy+1, ix)
	v11 := g.Data.Get(iy+1, ix+1)
	return v00*(1-tx)*(1-ty) + v10*tx*(1-ty) + v01*(1-tx)*ty + v11*tx*ty
}
