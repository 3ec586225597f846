// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package act is the thin orchestration layer the UI calls into: it reads
// geo.Store, assembles the inputs mvg/topo/nrm need, calls them, and
// writes results back. It holds no state of its own and implements no
// geometry; every algorithm lives in mvg, topo or nrm.
package act

import (
	"fmt"
	"log/slog"

	"github.com/damian0815/insight3d/config"
	"github.com/damian0815/insight3d/geo"
	"github.com/damian0815/insight3d/insighterr"
	"github.com/damian0815/insight3d/mvg"
	"github.com/damian0815/insight3d/nrm"
	"github.com/damian0815/insight3d/topo"
)

// Options bundles every tunable ACT's operations need, one field per
// downstream component plus the lattice-test grid.
type Options struct {
	Triangulate mvg.TriangulateOptions
	Resection   mvg.ResectionOptions
	Topo        topo.Options
	Normals     nrm.Options

	// LatticeCells is the grid side length the coverage test divides the
	// image into. Default 4.
	LatticeCells int
	// LatticeMinCells is the minimum number of covered cells required
	// to pass. Default 6.
	LatticeMinCells int

	Logger *slog.Logger
}

// FromConfig builds Options from a loaded config.Config, the way
// cmd/reconcli wires the two packages together.
func FromConfig(c config.Config) Options {
	return Options{
		Triangulate: mvg.TriangulateOptions{
			Trials:               c.RansacTrialsTriangulate,
			MeasurementThreshold: c.MeasurementThresholdPx,
			MinInliers:           c.MinInliers,
			MinInliersWeaker:     c.MinInliersWeaker,
		},
		Resection: mvg.ResectionOptions{
			Trials:               c.RansacTrialsTriangulate,
			MeasurementThreshold: c.MeasurementThresholdPx,
			MinInliers:           6,
		},
		Topo: topo.Options{
			CompactnessThreshold: c.TopoCompactnessThreshold,
			CompactnessDelta:     c.TopoCompactnessDelta,
		},
		Normals:         nrm.Options{K: c.NormalKNNK, PlaneFit: mvg.DefaultPlaneFitOptions()},
		LatticeCells:    c.ActLatticeCells,
		LatticeMinCells: c.ActLatticeMinCells,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) lattice() (cells, minCells int) {
	cells, minCells = o.LatticeCells, o.LatticeMinCells
	if cells <= 0 {
		cells = 4
	}
	if minCells <= 0 {
		minCells = 6
	}
	return cells, minCells
}

// TriangulateResult summarises one triangulate_vertices pass.
type TriangulateResult struct {
	Triangulated int // vertices newly (re)reconstructed.
	Cleared      int // vertices whose triangulation failed and were cleared.
	Skipped      int // vertices with fewer than 2 usable calibrated observations.
}

// TriangulateVertices re-triangulates every vertex with at least two
// incident observations on calibrated shots. If shots is non-empty, only
// observations on those shots are considered. If onlyManual is true, only
// geo.VertexUser vertices are processed.
func TriangulateVertices(store *geo.Store, shots []geo.ShotHandle, onlyManual bool, opts mvg.TriangulateOptions) TriangulateResult {
	var mask map[geo.ShotHandle]bool
	if len(shots) > 0 {
		mask = make(map[geo.ShotHandle]bool, len(shots))
		for _, s := range shots {
			mask[s] = true
		}
	}

	var result TriangulateResult
	var targets []geo.VertexHandle
	store.EachVertex(func(h geo.VertexHandle, v *geo.Vertex) {
		if onlyManual && v.Type != geo.VertexUser {
			return
		}
		if store.IncidenceCount(h) >= 2 {
			targets = append(targets, h)
		} else {
			result.Skipped++
		}
	})

	for _, v := range targets {
		var projections []mvg.Mat34
		var observations []mvg.Vec2
		for _, obs := range store.Incidence(v) {
			shot, ok := store.Shot(obs.Shot)
			if !ok || !shot.Calibrated {
				continue
			}
			if mask != nil && !mask[obs.Shot] {
				continue
			}
			point, ok := store.PointOnShot(obs.Shot, obs.Point)
			if !ok {
				continue
			}
			projections = append(projections, shot.Calibration.P)
			observations = append(observations, pixelCoords(shot, point))
		}
		if len(projections) < 2 {
			result.Skipped++
			continue
		}

		X, ok := mvg.Triangulate(projections, observations, opts)
		if !ok {
			store.ClearVertex(v)
			result.Cleared++
			continue
		}
		store.SetVertexCoords(v, X[0], X[1], X[2])
		store.SetVertexReprojectionError(v, meanResidual(projections, observations, X))
		result.Triangulated++
	}
	return result
}

func meanResidual(projections []mvg.Mat34, observations []mvg.Vec2, X mvg.Vec3) float64 {
	sum := 0.0
	for i, P := range projections {
		sum += mvg.Residual(P, X, observations[i])
	}
	return sum / float64(len(projections))
}

// pixelCoords converts a Point's normalised [0,1] image coordinates to
// pixel coordinates in shot's frame, the unit mvg's RANSAC thresholds are
// expressed in.
func pixelCoords(shot geo.Shot, p geo.Point) mvg.Vec2 {
	return mvg.Vec2{p.X * float64(shot.Width), p.Y * float64(shot.Height)}
}

// ResectionShot recovers shot's camera from its reconstructed-vertex
// observations. Requires at least 6 such correspondences; fewer is
// insighterr.DegenerateInput. A RANSAC failure clears any existing
// calibration on shot, leaving the rest of the store untouched, and
// returns insighterr.NumericalFailure.
func ResectionShot(store *geo.Store, shot geo.ShotHandle, flags mvg.EnforceFlags, opts mvg.ResectionOptions) error {
	sh, ok := store.Shot(shot)
	if !ok {
		return fmt.Errorf("act: resection: %w", insighterr.InvalidHandle)
	}

	var world []mvg.Vec3
	var observations []mvg.Vec2
	store.ForEachPointOnShot(shot, func(_ int, p geo.Point) {
		v, ok := store.Vertex(p.Vertex)
		if !ok || !v.Reconstructed {
			return
		}
		world = append(world, mvg.Vec3{v.X, v.Y, v.Z})
		observations = append(observations, pixelCoords(sh, p))
	})
	if len(world) < 6 {
		return fmt.Errorf("act: resection: shot %q has %d reconstructed correspondences (need >= 6): %w",
			sh.Name, len(world), insighterr.DegenerateInput)
	}

	opts.Flags = flags
	result, ok := mvg.Resection(world, observations, opts)
	if !ok {
		store.ClearCalibration(shot)
		return fmt.Errorf("act: resection: shot %q: %w", sh.Name, insighterr.NumericalFailure)
	}

	store.SetCalibration(shot, geo.Calibration{
		P:          result.P,
		K:          result.K,
		R:          result.R,
		T:          result.T,
		Euler:      result.Euler,
		PrincipalX: result.K[0][2],
		PrincipalY: result.K[1][2],
	})
	return nil
}

// LatticeTest divides shot's image into cells x cells grid cells and
// reports whether at least minCells of them contain a reconstructed
// vertex's point, the coverage gate for "resection all eligible".
func LatticeTest(store *geo.Store, shot geo.ShotHandle, cells, minCells int) bool {
	if cells <= 0 {
		cells = 4
	}
	if minCells <= 0 {
		minCells = 6
	}
	covered := make(map[[2]int]bool)
	store.ForEachPointOnShot(shot, func(_ int, p geo.Point) {
		v, ok := store.Vertex(p.Vertex)
		if !ok || !v.Reconstructed {
			return
		}
		cx := cellIndex(p.X, cells)
		cy := cellIndex(p.Y, cells)
		covered[[2]int{cx, cy}] = true
	})
	return len(covered) >= minCells
}

func cellIndex(coord float64, cells int) int {
	c := int(coord * float64(cells))
	if c >= cells {
		c = cells - 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

// ReconstructSurface runs topo.ExtractMesh for shot, replacing every
// auto-generated polygon already in the store.
func ReconstructSurface(store *geo.Store, shot geo.ShotHandle, opts topo.Options) (int, error) {
	return topo.ExtractMesh(store, shot, opts)
}

// ComputeNormals runs nrm.ComputeNormals over every reconstructed vertex
// in store.
func ComputeNormals(store *geo.Store, opts nrm.Options) (int, error) {
	return nrm.ComputeNormals(store, opts)
}

// ReconstructAllResult summarises a full ReconstructAll pass.
type ReconstructAllResult struct {
	Rounds        int
	NewlyResected int
	Surfaces      int // shots that received a mesh.
	NormalsSet    int
}

// ReconstructAll sequences triangulate_vertices, then repeatedly
// resections every uncalibrated, unlocked shot that passes the lattice
// test, re-triangulating after each round that resects at least one new
// shot, until a round resects none. It finishes with one
// reconstruct_surface pass per shot and one compute_normals pass.
func ReconstructAll(store *geo.Store, opts Options) ReconstructAllResult {
	cells, minCells := opts.lattice()
	var result ReconstructAllResult

	TriangulateVertices(store, nil, false, opts.Triangulate)

	for {
		result.Rounds++
		resectedThisRound := 0

		var candidates []geo.ShotHandle
		store.EachShot(func(h geo.ShotHandle, sh *geo.Shot) {
			if sh.Calibrated || sh.Locked {
				return
			}
			if LatticeTest(store, h, cells, minCells) {
				candidates = append(candidates, h)
			}
		})

		for _, h := range candidates {
			if err := ResectionShot(store, h, mvg.EnforceFlags{}, opts.Resection); err == nil {
				resectedThisRound++
			} else {
				opts.logger().Debug("act: reconstruct_all: resection attempt failed", "shot", h, "err", err)
			}
		}

		result.NewlyResected += resectedThisRound
		if resectedThisRound == 0 {
			break
		}
		TriangulateVertices(store, nil, false, opts.Triangulate)
	}

	store.EachShot(func(h geo.ShotHandle, sh *geo.Shot) {
		if n, err := ReconstructSurface(store, h, opts.Topo); err == nil && n > 0 {
			result.Surfaces++
		}
	})

	if n, err := ComputeNormals(store, opts.Normals); err == nil {
		result.NormalsSet = n
	}

	return result
}
