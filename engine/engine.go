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

// Package engine defines the mesh generation boundary: a fixed
// request/result contract and the Engine interface behind which any
// unstructured mesher can sit. The built-in engine is a conforming Delaunay
// refinement mesher driven by the sampled sizing grid.
package engine

import (
	"fmt"

	"github.com/ctessum/geom"

	"github.com/dtcc-platform/dtcc/field"
)

// Request is the mesher input schema: the PSLG flattened to vertex and
// segment arrays, one seed point inside every part that should be meshed,
// and the sampled sizing grid the mesher interpolates for local target edge
// lengths.
type Request struct {
	Verts    []geom.Point
	Segments [][2]int
	Seeds    []geom.Point
	Sizing   *field.Grid
	// HMin and HMax clamp the interpolated sizing values.
	HMin, HMax float64
}

// Result is the raw mesher output: vertex coordinates and triangle index
// triples with counter-clockwise winding. The vertex array may contain
// vertices no triangle references; callers compact it.
type Result struct {
	Verts     []geom.Point
	Triangles [][3]int
}

// Engine generates a triangular mesh from a request. Invoke is synchronous
// and must not retain the request after returning. Implementations report
// failure through a *GenerationError; identical requests produce identical
// failures, so callers never retry.
type Engine interface {
	Invoke(*Request) (*Result, error)
}

// GenerationError reports a mesher failure, carrying the engine diagnostic.
type GenerationError struct {
	Diag string
}

func (e *GenerationError) Error() string {
	return "engine: " + e.Diag
}

func errGenerationf(format string, args ...interface{}) error {
	return &GenerationError{Diag: fmt.Sprintf(format, args...)}
}

func (r *Request) validate() error {
	if len(r.Verts) < 3 {
		return errGenerationf("request has %d vertices; need at least 3", len(r.Verts))
	}
	if len(r.Segments) < 3 {
		return errGenerationf("request has %d segments; need at least 3", len(r.Segments))
	}
	if len(r.Seeds) == 0 {
		return errGenerationf("request has no seed points")
	}
	if r.Sizing == nil {
		return errGenerationf("request has no sizing grid")
	}
	if r.HMax <= 0 || r.HMin <= 0 || r.HMin > r.HMax {
		return errGenerationf("invalid size bounds hmin=%g hmax=%g", r.HMin, r.HMax)
	}
	for _, s := range r.Segments {
		if s[0] < 0 || s[0] >= len(r.Verts) || s[1] < 0 || s[1] >= len(r.Verts) {
			return errGenerationf("segment %v references invalid vertex", s)
		}
		if s[0] == s[1] {
			return errGenerationf("segment %v is degenerate", s)
		}
	}
	return nil
}
