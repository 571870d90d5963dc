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
	"fmt"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/dtcc-platform/dtcc/pslg"
)

// Params controls the blend from near-edge sizes to the global target size.
type Params struct {
	// MaxH is the global target edge length, reached at or beyond EdgeBand
	// from the nearest boundary edge.
	MaxH float64
	// EdgeHMin is the target edge length on the boundary itself.
	EdgeHMin float64
	// EdgeBand is the distance over which the size ramps from EdgeHMin to
	// MaxH. Zero or negative degenerates to a step function: EdgeHMin
	// exactly on the boundary, MaxH everywhere else.
	EdgeBand float64
	// Resolutions lowers the near-edge size inside named regions: the
	// minimum size at a node inside region R is min(EdgeHMin,
	// Resolutions[R]). Regions absent from the map use EdgeHMin.
	Resolutions map[string]float64
}

// SizingError reports a blend parameterization that would produce a
// non-positive target size. It is raised before the mesher is invoked.
type SizingError struct {
	Reason string
}

func (e *SizingError) Error() string {
	return "field: " + e.Reason
}

func errSizingf(format string, args ...interface{}) error {
	return &SizingError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that every size the blend can produce is strictly
// positive.
func (par Params) Validate() error {
	if par.MaxH <= 0 {
		return errSizingf("maxh must be positive, got %g", par.MaxH)
	}
	if par.EdgeHMin <= 0 {
		return errSizingf("edge_hmin must be positive, got %g", par.EdgeHMin)
	}
	if par.EdgeHMin > par.MaxH {
		return errSizingf("edge_hmin %g exceeds maxh %g", par.EdgeHMin, par.MaxH)
	}
	for label, res := range par.Resolutions {
		if res <= 0 {
			return errSizingf("resolution for region %q must be positive, got %g", label, res)
		}
	}
	return nil
}

// Blend combines the distance field dist with the blend parameters into the
// sizing field:
//
//	size(d) = hmin + (maxh - hmin) * clamp(d/band, 0, 1)
//
// where hmin at each node is EdgeHMin lowered by the resolution requested
// for the region the node falls inside. Region classification is memoized
// per grid row. The returned grid is read-only once produced.
func Blend(dist *Grid, p *pslg.PSLG, par Params) (*Grid, error) {
	if err := par.Validate(); err != nil {
		return nil, err
	}
	out := &Grid{
		X0: dist.X0, Y0: dist.Y0,
		Dx: dist.Dx, Dy: dist.Dy,
		Nx: dist.Nx, Ny: dist.Ny,
		Data: sparse.ZerosDense(dist.Ny, dist.Nx),
	}

	hasOverrides := false
	for _, res := range par.Resolutions {
		if res < par.EdgeHMin {
			hasOverrides = true
			break
		}
	}
	for iy := 0; iy < dist.Ny; iy++ {
		var row *pslg.Row
		if hasOverrides {
			row = p.Row(dist.Y0 + float64(iy)*dist.Dy)
		}
		for ix := 0; ix < dist.Nx; ix++ {
			d := dist.Data.Get(iy, ix)
			hmin := par.EdgeHMin
			if hasOverrides {
				if res, ok := par.Resolutions[row.RegionAt(dist.X0+float64(ix)*dist.Dx)]; ok && res < hmin {
					hmin = res
				}
			}
			var size float64
			if par.EdgeBand <= 0 {
				if d <= 0 {
					size = hmin
				} else {
					size = par.MaxH
				}
			} else {
				t := d / par.EdgeBand
				if t < 0 {
					t = 0
				} else if t > 1 {
					t = 1
				}
				size = hmin + (par.MaxH-hmin)*t
			}
			out.Data.Set(size, iy, ix)
		}
	}
	if min := floats.Min(out.Data.Elements); min <= 0 {
		return nil, errSizingf("blended sizing field reaches %g; sizes must be strictly positive", min)
	}
	return out, nil
}
