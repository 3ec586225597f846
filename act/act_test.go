// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package act

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/insighterr"
	"github.com/damian0815/insight3d/mvg"
)

// addCalibratedShot adds a calibrated shot with focal length w/2, no
// skew, centred principal point, at the given camera centre (R=I,
// translation chosen so the camera sits at center).
func addCalibratedShot(store *geo.Store, name string, w, h int, center mvg.Vec3) geo.ShotHandle {
	s := store.AddShot(name, w, h)
	focal := float64(w) / 2
	K := [3][3]float64{{focal, 0, float64(w) / 2}, {0, focal, float64(h) / 2}, {0, 0, 1}}
	R := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	T := [3]float64{-center[0], -center[1], -center[2]}
	P := projectKRT(K, R, T)
	store.SetCalibration(s, geo.Calibration{P: P, K: K, R: R, T: T, PrincipalX: K[0][2], PrincipalY: K[1][2]})
	return s
}

func projectKRT(K, R [3][3]float64, T [3]float64) mvg.Mat34 {
	RT := mvg.Mat34{
		{R[0][0], R[0][1], R[0][2], T[0]},
		{R[1][0], R[1][1], R[1][2], T[1]},
		{R[2][0], R[2][1], R[2][2], T[2]},
	}
	var P mvg.Mat34
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += K[i][k] * RT[k][j]
			}
			P[i][j] = sum
		}
	}
	return P
}

func TestTriangulateVerticesTwoView(t *testing.T) {
	store := geo.NewStore()
	w, h := 2000, 2000
	a := addCalibratedShot(store, "A", w, h, mvg.Vec3{0, 0, 0})
	b := addCalibratedShot(store, "B", w, h, mvg.Vec3{1, 0, 0})

	v := store.AddVertex(geo.VertexUser)
	// A world point in front of both cameras along +z, with enough
	// baseline-relative-to-depth parallax to triangulate cleanly.
	X := mvg.Vec3{0.05, 0, 1}
	uvA, _ := mvg.Project(store2cal(store, a), X)
	uvB, _ := mvg.Project(store2cal(store, b), X)
	store.AddPoint(a, uvA[0]/float64(w), uvA[1]/float64(h), v)
	store.AddPoint(b, uvB[0]/float64(w), uvB[1]/float64(h), v)

	result := TriangulateVertices(store, nil, false, mvg.DefaultTriangulateOptions())
	if result.Triangulated != 1 {
		t.Fatalf("expected 1 triangulated vertex, got %+v", result)
	}
	vx, _ := store.Vertex(v)
	if !vx.Reconstructed {
		t.Fatal("expected vertex to be reconstructed")
	}
	if math.Abs(vx.Z-1) > 1e-3 {
		t.Fatalf("expected z~1, got %f", vx.Z)
	}
}

func store2cal(store *geo.Store, s geo.ShotHandle) mvg.Mat34 {
	sh, _ := store.Shot(s)
	return sh.Calibration.P
}

func TestTriangulateVerticesSingleViewSkipped(t *testing.T) {
	store := geo.NewStore()
	a := addCalibratedShot(store, "A", 100, 100, mvg.Vec3{0, 0, 0})
	v := store.AddVertex(geo.VertexUser)
	store.AddPoint(a, 0.5, 0.5, v)

	result := TriangulateVertices(store, nil, false, mvg.DefaultTriangulateOptions())
	if result.Triangulated != 0 || result.Skipped != 1 {
		t.Fatalf("expected single-view vertex to be skipped, got %+v", result)
	}
}

func TestResectionShotRecoversKnownCamera(t *testing.T) {
	store := geo.NewStore()
	w, h := 640, 480
	K := [3][3]float64{{800, 0, 320}, {0, 800, 240}, {0, 0, 1}}
	R := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	T := [3]float64{0, 0, 5}
	P := projectKRT(K, R, T)

	shot := store.AddShot("cam", w, h)

	world := []mvg.Vec3{
		{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0},
		{0, 0, 1}, {0.3, -0.2, 0.6}, {-0.4, 0.5, 0.2},
	}
	for _, X := range world {
		v := store.AddVertex(geo.VertexUser)
		store.SetVertexCoords(v, X[0], X[1], X[2])
		uv, ok := mvg.Project(P, X)
		if !ok {
			t.Fatalf("setup point %v projects to infinity", X)
		}
		store.AddPoint(shot, uv[0]/float64(w), uv[1]/float64(h), v)
	}

	opts := mvg.DefaultResectionOptions()
	opts.Rand = rand.New(rand.NewSource(42))
	if err := ResectionShot(store, shot, mvg.EnforceFlags{}, opts); err != nil {
		t.Fatalf("unexpected resection failure: %v", err)
	}

	sh, _ := store.Shot(shot)
	if !sh.Calibrated {
		t.Fatal("expected shot to be calibrated")
	}
	if sh.Calibration.R[0][0] < 0.99 {
		t.Fatalf("expected recovered rotation close to identity, got %+v", sh.Calibration.R)
	}
	if math.Abs(sh.Calibration.K[2][2]-1) > 1e-6 {
		t.Fatalf("expected K[2][2]==1, got %f", sh.Calibration.K[2][2])
	}
}

func TestResectionShotTooFewPoints(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("cam", 100, 100)
	for i := 0; i < 3; i++ {
		v := store.AddVertex(geo.VertexUser)
		store.SetVertexCoords(v, float64(i), 0, 1)
		store.AddPoint(shot, 0.1*float64(i), 0.1, v)
	}

	err := ResectionShot(store, shot, mvg.EnforceFlags{}, mvg.DefaultResectionOptions())
	if !errors.Is(err, insighterr.DegenerateInput) {
		t.Fatalf("expected DegenerateInput, got %v", err)
	}
}

// Six colinear world points are a classical critical configuration for
// DLT-based resection: no finite camera is uniquely determined by points
// on a single 3D line, so the attempt must fail cleanly.
func TestResectionColinearPointsFails(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("cam", 100, 100)
	for i := 0; i < 6; i++ {
		v := store.AddVertex(geo.VertexUser)
		store.SetVertexCoords(v, float64(i), 0, 1) // all colinear along x.
		store.AddPoint(shot, 0.1+0.05*float64(i), 0.5, v)
	}

	err := ResectionShot(store, shot, mvg.EnforceFlags{}, mvg.DefaultResectionOptions())
	if !errors.Is(err, insighterr.NumericalFailure) {
		t.Fatalf("expected NumericalFailure for colinear points, got %v", err)
	}
}

func TestLatticeTest(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("s", 100, 100)

	// Cover only one grid cell: not enough for the default threshold.
	for i := 0; i < 10; i++ {
		v := store.AddVertex(geo.VertexAuto)
		store.SetVertexCoords(v, 0, 0, 1)
		store.AddPoint(shot, 0.01*float64(i), 0.01, v)
	}
	if LatticeTest(store, shot, 4, 6) {
		t.Fatal("expected single-cell coverage to fail the lattice test")
	}

	// Spread points across six distinct cells of a 4x4 grid.
	store2 := geo.NewStore()
	shot2 := store2.AddShot("s", 100, 100)
	coords := [][2]float64{{0.05, 0.05}, {0.3, 0.05}, {0.55, 0.05}, {0.8, 0.05}, {0.05, 0.3}, {0.3, 0.3}}
	for _, c := range coords {
		v := store2.AddVertex(geo.VertexAuto)
		store2.SetVertexCoords(v, 0, 0, 1)
		store2.AddPoint(shot2, c[0], c[1], v)
	}
	if !LatticeTest(store2, shot2, 4, 6) {
		t.Fatal("expected six-cell coverage to pass the lattice test")
	}
}
