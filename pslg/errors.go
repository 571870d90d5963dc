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

import "fmt"

// GeometryError reports malformed input geometry: self-intersecting or
// degenerate rings, or ambiguous region labels. It is never repaired
// silently beyond vertex snapping.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "pslg: " + e.Reason
}

func errGeometryf(format string, args ...interface{}) error {
	return &GeometryError{Reason: fmt.Sprintf(format, args...)}
}
