// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New()
	if c.CacheFullCount != 4 || c.CacheLowCount != 32 {
		t.Fatalf("unexpected cache defaults: %+v", c)
	}
	if c.MinInliers != 3 || c.MinInliersWeaker != 2 {
		t.Fatalf("unexpected RANSAC defaults: %+v", c)
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	c := New(
		CacheCounts(8, 64),
		TriangulateRANSAC(500, 1.5, 4, 3),
		NormalKNN(50),
		TopoCompactness(0.9, 0.05),
		ActLattice(6, 10),
	)
	if c.CacheFullCount != 8 || c.CacheLowCount != 64 {
		t.Fatalf("cache counts not applied: %+v", c)
	}
	if c.RansacTrialsTriangulate != 500 || c.MeasurementThresholdPx != 1.5 {
		t.Fatalf("RANSAC tunables not applied: %+v", c)
	}
	if c.NormalKNNK != 50 {
		t.Fatalf("knn not applied: %+v", c)
	}
	if c.TopoCompactnessThreshold != 0.9 || c.TopoCompactnessDelta != 0.05 {
		t.Fatalf("compactness not applied: %+v", c)
	}
	if c.ActLatticeCells != 6 || c.ActLatticeMinCells != 10 {
		t.Fatalf("lattice not applied: %+v", c)
	}
}

func TestLoadYAMLOverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "insight3d.yaml")
	contents := []byte("cache_full_count: 10\nmeasurement_threshold_px: 3.5\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.CacheFullCount != 10 {
		t.Fatalf("expected cache_full_count override, got %d", c.CacheFullCount)
	}
	if c.MeasurementThresholdPx != 3.5 {
		t.Fatalf("expected measurement_threshold_px override, got %f", c.MeasurementThresholdPx)
	}
	if c.CacheLowCount != 32 {
		t.Fatalf("expected untouched field to keep default, got %d", c.CacheLowCount)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/insight3d.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
