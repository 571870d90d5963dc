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

// Package meshing generates boundary-conforming triangular meshes over
// labeled polygonal domains. It runs the pipeline
//
//	polygons -> PSLG -> distance field -> sizing field -> mesher -> mesh
//
// synchronously per request, with all working state request-scoped.
// Independent requests may run concurrently.
package meshing

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/dtcc-platform/dtcc/engine"
	"github.com/dtcc-platform/dtcc/field"
	"github.com/dtcc-platform/dtcc/pslg"
)

// Params configures one meshing request.
type Params struct {
	// MaxH is the global target edge length.
	MaxH float64
	// EdgeHMin is the target edge length on boundary edges. Zero selects
	// the default 0.25*MaxH.
	EdgeHMin float64
	// EdgeBand is the distance over which sizes ramp from EdgeHMin to MaxH.
	// Negative or zero values degenerate to a step function; use
	// DefaultParams for the conventional 3*MaxH band.
	EdgeBand float64
	// SnapTol is the vertex snapping tolerance. Zero selects 1e-6*MaxH.
	SnapTol float64
	// AreaThreshold is the signed-area magnitude below which an output
	// triangle counts as degenerate and is removed. Zero selects
	// 1e-9*MaxH^2.
	AreaThreshold float64
	// Resolutions maps region labels to requested target edge lengths.
	// Regions absent from the map use EdgeHMin near edges and MaxH away
	// from them.
	Resolutions map[string]float64
	// Engine overrides the mesh generation engine. Nil selects the built-in
	// Delaunay engine.
	Engine engine.Engine
}

// DefaultParams returns the conventional parameterization for a global
// target size: near-edge size a quarter of maxh, ramped over three times
// maxh.
func DefaultParams(maxh float64) Params {
	return Params{
		MaxH:     maxh,
		EdgeHMin: 0.25 * maxh,
		EdgeBand: 3 * maxh,
	}
}

// Build meshes the given region polygons. The stages run in order and a
// failed stage aborts the whole request; partial results are never
// returned. Errors are *pslg.GeometryError, *field.SizingError,
// *engine.GenerationError or *ValidationError, wrapped with the failing
// stage.
func Build(polys []pslg.Polygon, par Params) (*Mesh, error) {
	if par.EdgeHMin == 0 {
		par.EdgeHMin = 0.25 * par.MaxH
	}
	if par.SnapTol == 0 {
		par.SnapTol = 1e-6 * par.MaxH
	}
	if par.AreaThreshold == 0 {
		par.AreaThreshold = 1e-9 * par.MaxH * par.MaxH
	}

	start := time.Now()
	g, err := pslg.Build(polys, par.SnapTol)
	if err != nil {
		return nil, fmt.Errorf("meshing: preprocess: %w", err)
	}
	log.WithFields(log.Fields{
		"polygons": len(polys),
		"vertices": len(g.Verts),
		"edges":    len(g.Edges),
	}).Debug("built PSLG")

	fp := field.Params{
		MaxH:        par.MaxH,
		EdgeHMin:    par.EdgeHMin,
		EdgeBand:    par.EdgeBand,
		Resolutions: par.Resolutions,
	}
	if err := fp.Validate(); err != nil {
		return nil, fmt.Errorf("meshing: sizing: %w", err)
	}

	grid := field.NewGrid(g.Bounds, par.MaxH)
	field.Distances(g, grid)
	sizing, err := field.Blend(grid, g, fp)
	if err != nil {
		return nil, fmt.Errorf("meshing: sizing: %w", err)
	}
	log.WithFields(log.Fields{
		"nx": sizing.Nx,
		"ny": sizing.Ny,
	}).Debug("blended sizing field")

	segs := make([][2]int, len(g.Edges))
	for i, e := range g.Edges {
		segs[i] = [2]int{e.A, e.B}
	}
	req := &engine.Request{
		Verts:    g.Verts,
		Segments: segs,
		Seeds:    g.SeedPoints(),
		Sizing:   sizing,
		HMin:     floats.Min(sizing.Data.Elements),
		HMax:     par.MaxH,
	}
	eng := par.Engine
	if eng == nil {
		eng = &engine.Delaunay{}
	}
	raw, err := eng.Invoke(req)
	if err != nil {
		return nil, fmt.Errorf("meshing: generate: %w", err)
	}

	mesh := adapt(raw, g, par.AreaThreshold)
	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("meshing: %w", err)
	}
	log.WithFields(log.Fields{
		"vertices":  len(mesh.Vertices),
		"triangles": len(mesh.Triangles),
		"elapsed":   time.Since(start).Round(time.Millisecond),
	}).Info("mesh generated")
	return mesh, nil
}
