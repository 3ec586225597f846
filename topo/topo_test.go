// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package topo

import (
	"errors"
	"testing"

	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/insighterr"
)

func addReconstructedPoint(store *geo.Store, shot geo.ShotHandle, x, y, wx, wy, wz float64) geo.VertexHandle {
	v := store.AddVertex(geo.VertexAuto)
	store.SetVertexCoords(v, wx, wy, wz)
	store.AddPoint(shot, x, y, v)
	return v
}

func TestExtractMeshTooFewPoints(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("a", 100, 100)
	addReconstructedPoint(store, shot, 0.1, 0.1, 0, 0, 1)
	addReconstructedPoint(store, shot, 0.9, 0.1, 1, 0, 1)

	_, err := ExtractMesh(store, shot, DefaultOptions())
	if !errors.Is(err, insighterr.DegenerateInput) {
		t.Fatalf("expected DegenerateInput, got %v", err)
	}
}

func TestExtractMeshInvalidShot(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("a", 100, 100)
	store.EraseShot(shot)

	_, err := ExtractMesh(store, shot, DefaultOptions())
	if !errors.Is(err, insighterr.InvalidHandle) {
		t.Fatalf("expected InvalidHandle, got %v", err)
	}
}

// A flat, well-spaced planar grid should triangulate cleanly and every
// accepted triangle should reference reconstructed vertices, tagged auto.
func TestExtractMeshAcceptsCompactGrid(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("a", 100, 100)

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			x := 0.1 + float64(i)*0.25
			y := 0.1 + float64(j)*0.25
			addReconstructedPoint(store, shot, x, y, x*10, y*10, 0)
		}
	}

	n, err := ExtractMesh(store, shot, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == 0 {
		t.Fatal("expected at least one accepted triangle")
	}

	count := 0
	store.EachPolygon(func(_ geo.PolygonHandle, p *geo.Polygon) {
		if p.Source != geo.PolygonAuto {
			t.Fatalf("expected only auto polygons, got source %v", p.Source)
		}
		if len(p.Vertices) != 3 {
			t.Fatalf("expected triangles, got %d vertices", len(p.Vertices))
		}
		count++
	})
	if count != n {
		t.Fatalf("expected %d polygons in store, found %d", n, count)
	}
}

// Re-running ExtractMesh must clear the previous auto mesh without
// touching a user-drawn polygon.
func TestExtractMeshClearsOnlyAutoPolygons(t *testing.T) {
	store := geo.NewStore()
	shot := store.AddShot("a", 100, 100)

	var verts []geo.VertexHandle
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			x := 0.1 + float64(i)*0.25
			y := 0.1 + float64(j)*0.25
			verts = append(verts, addReconstructedPoint(store, shot, x, y, x*10, y*10, 0))
		}
	}
	userPoly := store.AddPolygon(verts[:3], geo.PolygonUser)

	if _, err := ExtractMesh(store, shot, DefaultOptions()); err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if _, err := ExtractMesh(store, shot, DefaultOptions()); err != nil {
		t.Fatalf("second extract: %v", err)
	}

	if !store.ValidPolygon(userPoly) {
		t.Fatal("user polygon was erased by a mesh-extraction re-run")
	}
}

func TestHeronCompactnessDegenerate(t *testing.T) {
	// Collinear points: zero-area "triangle".
	_, _, ok := heronCompactness(1, 1, 2)
	if ok {
		t.Fatal("expected degenerate collinear triple to be rejected")
	}
}

func TestHeronCompactnessEquilateral(t *testing.T) {
	area, comp, ok := heronCompactness(1, 1, 1)
	if !ok {
		t.Fatal("expected equilateral triangle to be valid")
	}
	if area <= 0 {
		t.Fatalf("expected positive area, got %f", area)
	}
	// L=3, (L/4)^2 = 0.5625; area = sqrt(3)/4 ~= 0.433.
	if comp < 0 {
		t.Fatalf("expected non-negative compactness, got %f", comp)
	}
}
