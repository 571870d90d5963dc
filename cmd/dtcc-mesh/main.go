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

// Command dtcc-mesh meshes polygonal domains from the loop text format:
// the first non-empty line is the exterior boundary as "x1 y1 x2 y2 ...",
// each following non-empty line an inner loop. Inner loops are meshed as
// labeled sub-regions with preserved interfaces, or cut out as holes with
// --holes.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/dtcc-platform/dtcc/meshing"
	"github.com/dtcc-platform/dtcc/pslg"
)

type config struct {
	MaxH        float64            `toml:"maxh"`
	EdgeHMin    float64            `toml:"edge_hmin"`
	EdgeBand    float64            `toml:"edge_band"`
	SnapTol     float64            `toml:"snap_tol"`
	Resolutions map[string]float64 `toml:"resolutions"`
}

func main() {
	var (
		loopsFile  string
		configFile string
		outFile    string
		asHoles    bool
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "dtcc-mesh",
		Short:         "Generate labeled triangular meshes over polygonal domains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Mesh a loop file using parameters from a TOML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			var cfg config
			if _, err := toml.DecodeFile(configFile, &cfg); err != nil {
				return fmt.Errorf("read config %s: %w", configFile, err)
			}
			if cfg.MaxH <= 0 {
				return fmt.Errorf("config %s: maxh must be positive", configFile)
			}
			if cfg.EdgeHMin == 0 {
				cfg.EdgeHMin = 0.25 * cfg.MaxH
			}
			if cfg.EdgeBand == 0 {
				cfg.EdgeBand = 3 * cfg.MaxH
			}

			exterior, inner, err := readLoops(loopsFile)
			if err != nil {
				return err
			}
			for i, loop := range inner {
				if !inRing(exterior, loop[0]) {
					return fmt.Errorf("%s: inner loop %d lies outside the exterior boundary",
						loopsFile, i+1)
				}
			}
			log.WithFields(log.Fields{
				"file":  loopsFile,
				"loops": 1 + len(inner),
			}).Debug("read loops")

			mesh, err := meshing.Build(polygons(exterior, inner, asHoles), meshing.Params{
				MaxH:        cfg.MaxH,
				EdgeHMin:    cfg.EdgeHMin,
				EdgeBand:    cfg.EdgeBand,
				SnapTol:     cfg.SnapTol,
				Resolutions: cfg.Resolutions,
			})
			if err != nil {
				return err
			}
			fmt.Printf("vertices: %d\ntriangles: %d\narea: %g\nboundary edges: %d\n",
				len(mesh.Vertices), len(mesh.Triangles), mesh.Area(), mesh.BoundaryEdgeCount())
			for label, n := range mesh.RegionHistogram() {
				fmt.Printf("region %s: %d triangles (area %g)\n", label, n, mesh.RegionArea(label))
			}
			if outFile != "" {
				if err := writeMesh(outFile, mesh); err != nil {
					return err
				}
				log.WithField("file", outFile).Info("mesh written")
			}
			return nil
		},
	}
	build.Flags().StringVar(&loopsFile, "loops", "", "loop text file (required)")
	build.Flags().StringVar(&configFile, "config", "", "TOML parameter file (required)")
	build.Flags().StringVar(&outFile, "out", "", "write the mesh to this file")
	build.Flags().BoolVar(&asHoles, "holes", false, "treat inner loops as holes instead of sub-regions")
	build.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	_ = build.MarkFlagRequired("loops")
	_ = build.MarkFlagRequired("config")
	root.AddCommand(build)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

// polygons assembles the region polygons handed to the mesher. In interface
// mode every inner loop becomes its own labeled region nested in the domain;
// in hole mode the inner loops are cut out of the single domain region.
func polygons(exterior geom.Path, inner []geom.Path, asHoles bool) []pslg.Polygon {
	if asHoles {
		return []pslg.Polygon{{Exterior: exterior, Holes: inner, Label: "domain"}}
	}
	polys := []pslg.Polygon{{Exterior: exterior, Label: "domain"}}
	for i, loop := range inner {
		polys = append(polys, pslg.Polygon{
			Exterior: loop,
			Label:    fmt.Sprintf("region%d", i+1),
		})
	}
	return polys
}

// readLoops parses the loop text format: one loop per non-empty line as
// whitespace-separated coordinate pairs. A repeated closing vertex is
// dropped.
func readLoops(path string) (geom.Path, []geom.Path, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var loops []geom.Path
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens)%2 != 0 {
			return nil, nil, fmt.Errorf("%s:%d: odd number of coordinates (%d); expected x y x y ...",
				path, lineNo, len(tokens))
		}
		loop := make(geom.Path, 0, len(tokens)/2)
		for i := 0; i < len(tokens); i += 2 {
			x, err := cast.ToFloat64E(tokens[i])
			if err != nil {
				return nil, nil, fmt.Errorf("%s:%d: bad coordinate %q", path, lineNo, tokens[i])
			}
			y, err := cast.ToFloat64E(tokens[i+1])
			if err != nil {
				return nil, nil, fmt.Errorf("%s:%d: bad coordinate %q", path, lineNo, tokens[i+1])
			}
			loop = append(loop, geom.Point{X: x, Y: y})
		}
		if len(loop) >= 2 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) < 3 {
			return nil, nil, fmt.Errorf("%s:%d: loop has fewer than 3 vertices", path, lineNo)
		}
		loops = append(loops, loop)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(loops) == 0 {
		return nil, nil, fmt.Errorf("%s: no loops found", path)
	}
	return loops[0], loops[1:], nil
}

// inRing is an even-odd ray cast of pt against the ring.
func inRing(ring geom.Path, pt geom.Point) bool {
	inside := false
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			if (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X > pt.X {
				inside = !inside
			}
		}
	}
	return inside
}

// writeMesh writes a plain text listing: vertex and triangle counts, vertex
// coordinates, then triangles as three vertex indices and the region label.
func writeMesh(path string, m *meshing.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d\n", len(m.Vertices), len(m.Triangles))
	for _, v := range m.Vertices {
		fmt.Fprintf(w, "%.17g %.17g\n", v.X, v.Y)
	}
	for i, t := range m.Triangles {
		fmt.Fprintf(w, "%d %d %d %s\n", t[0], t[1], t[2], m.Regions[i])
	}
	return w.Flush()
}
