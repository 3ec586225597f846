// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import (
	"math"
	"math/rand"
	"testing"
)

// TestFitPlaneRecoversKnownPlane checks that a cloud of points sampled
// exactly on z=0 recovers a unit normal parallel to (0,0,1).
func TestFitPlaneRecoversKnownPlane(t *testing.T) {
	var points []Vec3
	for x := -2.0; x <= 2.0; x += 0.5 {
		for y := -2.0; y <= 2.0; y += 0.5 {
			points = append(points, Vec3{x, y, 0})
		}
	}
	opts := DefaultPlaneFitOptions()
	opts.Rand = rand.New(rand.NewSource(11))
	plane, ok := FitPlane(points, opts)
	if !ok {
		t.Fatal("expected plane fit to succeed")
	}
	length := math.Sqrt(plane[0]*plane[0] + plane[1]*plane[1] + plane[2]*plane[2])
	if math.Abs(length-1) > 1e-6 {
		t.Fatalf("expected unit normal, got length %f", length)
	}
	if math.Abs(math.Abs(plane[2])-1) > 1e-6 {
		t.Fatalf("expected normal parallel to z axis, got %+v", plane)
	}
	if math.Abs(plane[3]) > 1e-6 {
		t.Fatalf("expected plane through origin (d~0), got %+v", plane)
	}
}

// TestFitPlaneTooFewPointsFails covers the "<3 points" immediate-failure
// edge case.
func TestFitPlaneTooFewPointsFails(t *testing.T) {
	if _, ok := FitPlane([]Vec3{{0, 0, 0}, {1, 0, 0}}, DefaultPlaneFitOptions()); ok {
		t.Fatal("expected fewer than 3 points to fail")
	}
}

// TestFitPlaneAllCollinearFails covers the "every sampled triple is
// collinear, no plane is ever well-defined" failure path.
func TestFitPlaneAllCollinearFails(t *testing.T) {
	var points []Vec3
	for i := 0; i < 10; i++ {
		points = append(points, Vec3{float64(i), 0, 0})
	}
	opts := DefaultPlaneFitOptions()
	opts.Rand = rand.New(rand.NewSource(2))
	if _, ok := FitPlane(points, opts); ok {
		t.Fatal("expected collinear point set to fail plane fit")
	}
}
