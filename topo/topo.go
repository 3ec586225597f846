// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package topo extracts a triangle mesh from a single shot's reconstructed
// points: a 2D Delaunay triangulation over the shot's image-plane
// observations, filtered by a combined 2D/3D compactness heuristic that
// rejects the slivers Delaunay produces along silhouette edges.
package topo

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/fogleman/delaunay"

	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/insighterr"
)

// Options tunes the compactness filter. The thresholds are empirical
// tunables, not derived quantities.
type Options struct {
	// CompactnessThreshold rejects any triangle whose 2D or 3D
	// compactness ratio is >= this value. Default 1.0.
	CompactnessThreshold float64
	// CompactnessDelta rejects a triangle whose 2D and 3D compactness
	// ratios disagree by more than this, i.e. the triangle looks
	// compact in the image but not in space (or vice versa). Default 0.1.
	CompactnessDelta float64
	// Logger receives one debug record per rejected triangle, matching
	// the source's "rejected triangles are printed" behaviour. Defaults
	// to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{CompactnessThreshold: 1.0, CompactnessDelta: 0.1}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

const minPointsForTriangulation = 3

// point2 is an image-plane observation paired with the vertex it belongs
// to and that vertex's reconstructed world position.
type point2 struct {
	vertex     geo.VertexHandle
	x, y       float64 // image-plane, normalised [0,1].
	wx, wy, wz float64
}

// ExtractMesh triangulates shot's reconstructed-vertex points in the image
// plane, keeps only triangles passing the compactness test, and replaces
// every auto-generated polygon (geo.PolygonAuto) in the store with the new
// ones. Polygons do not record the shot they came from, so a mesh made
// earlier from another shot is removed as well; user-drawn polygons
// (geo.PolygonUser) are left untouched.
//
// Returns the number of accepted triangles. DegenerateInput is returned
// (0, err) if shot has fewer than three reconstructed points to
// triangulate; this is not treated as fatal.
func ExtractMesh(store *geo.Store, shot geo.ShotHandle, opts Options) (int, error) {
	if !store.ValidShot(shot) {
		return 0, fmt.Errorf("topo: extract mesh: %w", insighterr.InvalidHandle)
	}
	if opts.CompactnessThreshold <= 0 {
		opts = DefaultOptions()
	}

	points := collectReconstructedPoints(store, shot)
	if len(points) < minPointsForTriangulation {
		return 0, fmt.Errorf("topo: shot has only %d reconstructed points (need >= %d): %w",
			len(points), minPointsForTriangulation, insighterr.DegenerateInput)
	}

	dpoints := make([]delaunay.Point, len(points))
	for i, p := range points {
		dpoints[i] = delaunay.Point{X: p.x, Y: p.y}
	}
	tri, err := delaunay.Triangulate(dpoints)
	if err != nil {
		return 0, fmt.Errorf("topo: delaunay triangulation: %w", insighterr.DegenerateInput)
	}

	var accepted [][3]int
	for t := 0; t+2 < len(tri.Triangles); t += 3 {
		a, b, c := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		if acceptTriangle(points[a], points[b], points[c], opts) {
			accepted = append(accepted, [3]int{a, b, c})
		} else {
			opts.logger().Debug("topo: rejected triangle", "a", a, "b", b, "c", c)
		}
	}

	store.ErasePolygonsBySource(geo.PolygonAuto)
	for _, tr := range accepted {
		verts := []geo.VertexHandle{points[tr[0]].vertex, points[tr[1]].vertex, points[tr[2]].vertex}
		store.AddPolygon(verts, geo.PolygonAuto)
	}
	return len(accepted), nil
}

func collectReconstructedPoints(store *geo.Store, shot geo.ShotHandle) []point2 {
	var pts []point2
	store.ForEachPointOnShot(shot, func(_ int, p geo.Point) {
		v, ok := store.Vertex(p.Vertex)
		if !ok || !v.Reconstructed {
			return
		}
		pts = append(pts, point2{vertex: p.Vertex, x: p.X, y: p.Y, wx: v.X, wy: v.Y, wz: v.Z})
	})
	return pts
}

// acceptTriangle applies the combined 2D/3D compactness test to the
// image-plane triangle (a,b,c) and its reconstructed 3D counterpart:
// both ratios must clear the threshold and agree to within the delta.
func acceptTriangle(a, b, c point2, opts Options) bool {
	d2ab := dist2(a.x, a.y, b.x, b.y)
	d2bc := dist2(b.x, b.y, c.x, c.y)
	d2ca := dist2(c.x, c.y, a.x, a.y)
	area2, comp2, ok2 := heronCompactness(d2ab, d2bc, d2ca)
	if !ok2 || area2 <= 0 {
		return false
	}

	d3ab := dist3(a.wx, a.wy, a.wz, b.wx, b.wy, b.wz)
	d3bc := dist3(b.wx, b.wy, b.wz, c.wx, c.wy, c.wz)
	d3ca := dist3(c.wx, c.wy, c.wz, a.wx, a.wy, a.wz)
	area3, comp3, ok3 := heronCompactness(d3ab, d3bc, d3ca)
	if !ok3 || area3 <= 0 {
		return false
	}

	if comp2 >= opts.CompactnessThreshold || comp3 >= opts.CompactnessThreshold {
		return false
	}
	return math.Abs(comp2-comp3) < opts.CompactnessDelta
}

// heronCompactness returns the Heron area of a triangle with the given
// side lengths and its compactness ratio |1-(L/4)^2/A|. ok is false if
// the three lengths do not form a valid (non-degenerate) triangle.
func heronCompactness(d1, d2, d3 float64) (area, compactness float64, ok bool) {
	perimeter := d1 + d2 + d3
	s := perimeter / 2
	radicand := s * (s - d1) * (s - d2) * (s - d3)
	if radicand <= 0 {
		return 0, 0, false
	}
	area = math.Sqrt(radicand)
	compactness = math.Abs(1 - (perimeter/4)*(perimeter/4)/area)
	return area, compactness, true
}

func dist2(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}

func dist3(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx, dy, dz := x2-x1, y2-y1, z2-z1
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
