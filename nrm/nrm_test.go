// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package nrm

import (
	"errors"
	"math"
	"testing"

	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/insighterr"
	"github.com/damian0815/insight3d/mvg"
)

func TestComputeNormalsTooFewVertices(t *testing.T) {
	store := geo.NewStore()
	v := store.AddVertex(geo.VertexAuto)
	store.SetVertexCoords(v, 0, 0, 0)

	_, err := ComputeNormals(store, DefaultOptions())
	if !errors.Is(err, insighterr.DegenerateInput) {
		t.Fatalf("expected DegenerateInput, got %v", err)
	}
}

// A plane of vertices at z=0 observed by a calibrated camera at (0,0,5)
// looking along -z must end up with every normal's z component positive
// (oriented toward the observing camera).
func TestComputeNormalsOrientsTowardCamera(t *testing.T) {
	store := geo.NewStore()

	shot := store.AddShot("camera", 100, 100)
	store.SetCalibration(shot, geo.Calibration{
		R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		T: [3]float64{0, 0, -5}, // C = -R^T T = (0,0,5).
	})

	var verts []geo.VertexHandle
	n := 0
	for i := -5; i <= 5; i++ {
		for j := -5; j <= 5; j++ {
			v := store.AddVertex(geo.VertexAuto)
			store.SetVertexCoords(v, float64(i)*0.1, float64(j)*0.1, 0)
			store.AddPoint(shot, 0.5, 0.5, v)
			verts = append(verts, v)
			n++
		}
	}
	if n < 3 {
		t.Fatal("test setup produced too few vertices")
	}

	fitted, err := ComputeNormals(store, Options{K: 8, PlaneFit: mvg.DefaultPlaneFitOptions()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fitted == 0 {
		t.Fatal("expected at least one vertex to receive a normal")
	}

	for _, v := range verts {
		vx, ok := store.Vertex(v)
		if !ok || !vx.HasNormal {
			continue
		}
		if vx.Nz <= 0 {
			t.Fatalf("expected n_z > 0, got normal (%f,%f,%f)", vx.Nx, vx.Ny, vx.Nz)
		}
		length := math.Sqrt(vx.Nx*vx.Nx + vx.Ny*vx.Ny + vx.Nz*vx.Nz)
		if math.Abs(length-1) > 1e-6 {
			t.Fatalf("expected unit normal, got length %f", length)
		}
	}
}

func TestKNearestExcludesSelfAndOrdersByDistance(t *testing.T) {
	points := []point3{
		{x: 0, y: 0, z: 0, idx: 0},
		{x: 1, y: 0, z: 0, idx: 1},
		{x: 2, y: 0, z: 0, idx: 2},
		{x: 10, y: 0, z: 0, idx: 3},
	}
	tree := buildKDTree(append([]point3(nil), points...))

	got := kNearest(tree, points[0], 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbours, got %d", len(got))
	}
	for _, p := range got {
		if p.idx == 0 {
			t.Fatal("kNearest returned the query point itself")
		}
	}
	// Nearest two to (0,0,0) excluding itself are idx 1 and idx 2.
	seen := map[int]bool{}
	for _, p := range got {
		seen[p.idx] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected neighbours {1,2}, got %+v", got)
	}
}
