// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Command reconcli is a non-interactive smoke driver for the
// reconstruction core: it builds a small synthetic camera rig and point
// cloud, runs triangulate_vertices, resection, mesh extraction and
// normal estimation over it via act.ReconstructAll, and reports what
// came out the other end. It stands in for "the caller" described in
// the process model: no UI, no image files, just the pipeline.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/damian0815/insight3d/act"
	"github.com/damian0815/insight3d/config"
	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/mvg"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file overriding the defaults")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.New()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("reconcli: failed to load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	store := buildSyntheticRig()
	opts := act.FromConfig(cfg)
	opts.Logger = logger

	result := act.ReconstructAll(store, opts)
	logger.Info("reconcli: reconstruct_all complete",
		"rounds", result.Rounds,
		"newly_resected", result.NewlyResected,
		"surfaces", result.Surfaces,
		"normals_set", result.NormalsSet,
	)

	reconstructed := 0
	store.EachVertex(func(_ geo.VertexHandle, v *geo.Vertex) {
		if v.Reconstructed {
			reconstructed++
		}
	})
	calibrated := 0
	store.EachShot(func(_ geo.ShotHandle, sh *geo.Shot) {
		if sh.Calibrated {
			calibrated++
		}
	})
	fmt.Printf("reconstructed vertices: %d\ncalibrated shots: %d\n", reconstructed, calibrated)

	if reconstructed == 0 || calibrated == 0 {
		logger.Error("reconcli: smoke run produced no reconstruction")
		os.Exit(1)
	}
}

// buildSyntheticRig assembles a small known-geometry scene: a handful of
// cameras ringing a gently bowed 5x5 grid of points, with the first two
// cameras pre-calibrated as a seed pair. act.ReconstructAll triangulates
// the grid from the seed pair, then resections whichever other cameras
// its lattice coverage test admits once enough points are reconstructed,
// growing the solve outward.
func buildSyntheticRig() *geo.Store {
	store := geo.NewStore()
	const w, h = 640, 480

	centers := []mvg.Vec3{{0, 0, 0}, {0.6, 0, 0}, {-0.6, 0, 0}, {0, 0.4, 0}}
	shots := make([]geo.ShotHandle, len(centers))
	calibrations := make([]mvg.Mat34, len(centers))
	for i, c := range centers {
		shots[i] = store.AddShot(fmt.Sprintf("cam%d", i), w, h)
		calibrations[i] = syntheticProjection(w, h, c)
	}
	// Two cameras start calibrated (triangulation needs a view pair);
	// the rest must be resected by the pipeline once enough vertices are
	// reconstructed.
	for i := 0; i < 2; i++ {
		K, R, T := decomposeKnown(calibrations[i])
		store.SetCalibration(shots[i], geo.Calibration{P: calibrations[i], K: K, R: R, T: T})
	}

	for i := -2; i <= 2; i++ {
		for j := -2; j <= 2; j++ {
			// The bow in z keeps the cloud non-coplanar so resection's
			// DLT has a well-posed configuration to work with.
			X := mvg.Vec3{float64(i) * 0.2, float64(j) * 0.2, 2 + 0.05*float64(i*i+j*j)}
			v := store.AddVertex(geo.VertexUser)
			for s, P := range calibrations {
				uv, ok := mvg.Project(P, X)
				if !ok {
					continue
				}
				px, py := uv[0]/float64(w), uv[1]/float64(h)
				if px < 0 || px > 1 || py < 0 || py > 1 {
					continue
				}
				store.AddPoint(shots[s], px, py, v)
			}
		}
	}
	return store
}

func syntheticProjection(w, h int, center mvg.Vec3) mvg.Mat34 {
	focal := float64(w)
	K := mvg.Mat33{{focal, 0, float64(w) / 2}, {0, focal, float64(h) / 2}, {0, 0, 1}}
	R := mvg.Mat33{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	T := mvg.Vec3{-center[0], -center[1], -center[2]}
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

// decomposeKnown recovers K, R, T from a projection matrix built by
// syntheticProjection, via the same RQ machinery act/mvg use on
// resection output, so the seed camera's calibration is grounded in the
// same decomposition path as every camera the pipeline resections.
func decomposeKnown(P mvg.Mat34) (mvg.Mat33, mvg.Mat33, mvg.Vec3) {
	K, R, T, ok := mvg.DecomposeProjection(P)
	if !ok {
		panic(fmt.Sprintf("reconcli: seed camera projection %v failed to decompose", P))
	}
	return K, R, T
}

