// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import (
	"math"
	"math/rand"
	"testing"
)

// TestResectionRecoversGroundTruth projects six non-coplanar world
// points through a known P and checks that K, R, T come back up to the
// documented sign conventions (positive K diagonal, det(R)==+1).
func TestResectionRecoversGroundTruth(t *testing.T) {
	K := Mat33{{900, 0, 320}, {0, 900, 240}, {0, 0, 1}}
	R := identity33()
	T := Vec3{0, 0, 6}
	P := recompose(K, R, T)

	world := []Vec3{
		{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}, {0, 0, 2}, {0.5, -0.5, 1},
	}
	obs := make([]Vec2, len(world))
	for i, X := range world {
		uv, ok := Project(P, X)
		if !ok {
			t.Fatalf("setup point %v projects to infinity", X)
		}
		obs[i] = uv
	}

	opts := DefaultResectionOptions()
	opts.Rand = rand.New(rand.NewSource(99))
	result, ok := Resection(world, obs, opts)
	if !ok {
		t.Fatal("expected resection to recover a camera")
	}
	if result.K[0][0] < 0 || result.K[1][1] < 0 || result.K[2][2] < 0 {
		t.Fatalf("expected positive K diagonal, got %+v", result.K)
	}
	if d := det33(result.R); math.Abs(d-1) > 1e-6 {
		t.Fatalf("expected det(R)==1, got %f", d)
	}
	if math.Abs(result.K[0][0]-900) > 1 {
		t.Fatalf("expected recovered focal length near 900, got %f", result.K[0][0])
	}
}

// TestResectionTooFewPointsFails covers "n<6 is degenerate input".
func TestResectionTooFewPointsFails(t *testing.T) {
	world := []Vec3{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}}
	obs := []Vec2{{100, 100}, {200, 100}, {100, 200}}
	if _, ok := Resection(world, obs, DefaultResectionOptions()); ok {
		t.Fatal("expected fewer than 6 correspondences to fail")
	}
}

// TestResectionColinearPointsFails mirrors act's colinear boundary case
// directly at the mvg layer: six colinear points never determine a
// unique finite camera.
func TestResectionColinearPointsFails(t *testing.T) {
	world := make([]Vec3, 6)
	obs := make([]Vec2, 6)
	for i := range world {
		world[i] = Vec3{float64(i), 0, 1}
		obs[i] = Vec2{100 + 50*float64(i), 240}
	}
	opts := DefaultResectionOptions()
	opts.Rand = rand.New(rand.NewSource(5))
	if _, ok := Resection(world, obs, opts); ok {
		t.Fatal("expected colinear point set to fail resection")
	}
}
