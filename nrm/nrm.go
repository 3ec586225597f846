// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package nrm estimates a per-vertex normal for every reconstructed
// vertex in a geo.Store via k-NN plane fitting, orienting each normal
// toward whichever calibrated shot observes it.
package nrm

import (
	"fmt"
	"log/slog"

	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/insighterr"
	"github.com/damian0815/insight3d/mvg"
)

// Options tunes the neighbourhood size and the underlying robust plane
// fit.
type Options struct {
	// K is the neighbourhood size for the plane fit. Default 200.
	K        int
	PlaneFit mvg.PlaneFitOptions
	Logger   *slog.Logger
}

// DefaultOptions returns the default K=200 neighbourhood.
func DefaultOptions() Options {
	return Options{K: 200, PlaneFit: mvg.DefaultPlaneFitOptions()}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ComputeNormals fits a plane to each reconstructed vertex's K nearest
// reconstructed neighbours (a k-d tree is built once for the whole pass),
// stores the plane's unit normal on the vertex, and flips it to face any
// calibrated shot that observes the vertex. Vertices with fewer than two
// neighbours, or whose neighbourhood plane fit fails, keep whatever
// normal they already had. Returns the number of vertices that received
// a (possibly re-oriented) normal this pass.
func ComputeNormals(store *geo.Store, opts Options) (int, error) {
	if opts.K <= 0 {
		opts = DefaultOptions()
	}

	var handles []geo.VertexHandle
	var points []point3
	store.ReconstructedVertices(func(h geo.VertexHandle, v *geo.Vertex) {
		points = append(points, point3{x: v.X, y: v.Y, z: v.Z, idx: len(handles)})
		handles = append(handles, h)
	})
	if len(points) < 3 {
		return 0, fmt.Errorf("nrm: only %d reconstructed vertices: %w", len(points), insighterr.DegenerateInput)
	}

	tree := buildKDTree(append([]point3(nil), points...))

	fitted := 0
	for i, h := range handles {
		neighbours := kNearest(tree, points[i], opts.K)
		if len(neighbours) < 2 {
			continue // too few neighbours to define a plane alongside the query point.
		}
		samples := make([]mvg.Vec3, 0, len(neighbours)+1)
		samples = append(samples, mvg.Vec3{points[i].x, points[i].y, points[i].z})
		for _, nb := range neighbours {
			samples = append(samples, mvg.Vec3{nb.x, nb.y, nb.z})
		}
		plane, ok := mvg.FitPlane(samples, opts.PlaneFit)
		if !ok {
			opts.logger().Debug("nrm: plane fit failed", "vertex_index", i)
			continue
		}

		nx, ny, nz := plane[0], plane[1], plane[2]
		if cx, cy, cz, found := calibratedObserverCenter(store, h); found {
			// Signed distance of the camera centre from the fitted
			// plane: negative means the normal currently points away
			// from the camera, so flip it to face outward.
			if nx*cx+ny*cy+nz*cz+plane[3] < 0 {
				nx, ny, nz = -nx, -ny, -nz
			}
		}
		store.SetVertexNormal(h, nx, ny, nz)
		fitted++
	}
	return fitted, nil
}

// calibratedObserverCenter returns the world-space camera centre of any
// one calibrated shot observing v, via the incidence index. found is
// false if v has no calibrated observer, in which case the caller leaves
// the normal's orientation as computed.
func calibratedObserverCenter(store *geo.Store, v geo.VertexHandle) (cx, cy, cz float64, found bool) {
	for _, obs := range store.Incidence(v) {
		shot, ok := store.Shot(obs.Shot)
		if !ok || !shot.Calibrated {
			continue
		}
		cx, cy, cz := cameraCenter(shot.Calibration)
		return cx, cy, cz, true
	}
	return 0, 0, 0, false
}

// cameraCenter computes a calibrated shot's world-space position from
// P = K*[R|T]: the centre is C = -R^T * T.
func cameraCenter(c geo.Calibration) (x, y, z float64) {
	R, T := c.R, c.T
	x = -(R[0][0]*T[0] + R[1][0]*T[1] + R[2][0]*T[2])
	y = -(R[0][1]*T[0] + R[1][1]*T[1] + R[2][1]*T[2])
	z = -(R[0][2]*T[0] + R[1][2]*T[1] + R[2][2]*T[2])
	return x, y, z
}
