// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import (
	"math/rand"

	"github.com/damian0815/insight3d/internal/linalg"
)

// TriangulateOptions tunes RANSAC triangulation.
type TriangulateOptions struct {
	Trials               int     // Default 200.
	MeasurementThreshold float64 // Inlier radius in pixels. Default 2.0.
	MinInliers           int     // Strict acceptance. Default 3.
	MinInliersWeaker     int     // Relaxed acceptance. Default 2.
	Rand                 *rand.Rand
}

// DefaultTriangulateOptions returns the recommended defaults.
func DefaultTriangulateOptions() TriangulateOptions {
	return TriangulateOptions{
		Trials:               200,
		MeasurementThreshold: 2.0,
		MinInliers:           3,
		MinInliersWeaker:     2,
	}
}

func (o TriangulateOptions) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(1))
}

// candidate is a triangulated point plus the inlier evidence supporting it.
type candidate struct {
	point    Vec3
	inliers  []int
	residual float64 // summed residual over inliers, for tie-breaking.
	hasPoint bool
}

// Triangulate robustly reconstructs a single world point from its
// observations under known cameras. Fewer than two
// projections is an immediate DegenerateInput-shaped failure (ok=false).
func Triangulate(projections []Mat34, observations []Vec2, opts TriangulateOptions) (X Vec3, ok bool) {
	if len(projections) < 2 || len(projections) != len(observations) {
		return Vec3{}, false
	}
	if opts.Trials <= 0 {
		opts = DefaultTriangulateOptions()
	}
	rng := opts.rng()
	n := len(projections)

	var best candidate
	for t := 0; t < opts.Trials; t++ {
		sample := linalg.SampleIndices(n, 2, rng)
		if len(sample) < 2 {
			continue
		}
		i, j := sample[0], sample[1]
		views := []Mat34{projections[i], projections[j]}
		obs := []Vec2{observations[i], observations[j]}
		point, solved := triangulateDLT(views, obs)
		if !solved {
			continue // degenerate sample: zero baseline or coincident views.
		}
		cand := scoreTriangulation(point, projections, observations, opts.MeasurementThreshold)
		if better(cand, best) {
			best = cand
		}
	}
	if !best.hasPoint {
		return Vec3{}, false
	}

	switch {
	case len(best.inliers) >= opts.MinInliers:
		return refineTriangulation(best, projections, observations)
	case len(best.inliers) >= opts.MinInliersWeaker:
		// Accept the weaker candidate only because nothing better exists;
		// best already is the best candidate found across all trials.
		return refineTriangulation(best, projections, observations)
	default:
		return Vec3{}, false
	}
}

func scoreTriangulation(point Vec3, projections []Mat34, observations []Vec2, threshold float64) candidate {
	var inliers []int
	sum := 0.0
	for i, P := range projections {
		r := Residual(P, point, observations[i])
		if r <= threshold {
			inliers = append(inliers, i)
			sum += r
		}
	}
	return candidate{point: point, inliers: inliers, residual: sum, hasPoint: true}
}

// better reports whether a should replace b as the running-best candidate:
// more inliers wins; ties broken by smaller summed residual.
func better(a, b candidate) bool {
	if !b.hasPoint {
		return true
	}
	if len(a.inliers) != len(b.inliers) {
		return len(a.inliers) > len(b.inliers)
	}
	return a.residual < b.residual
}

// refineTriangulation re-solves DLT on all of the winning candidate's
// inliers.
func refineTriangulation(best candidate, projections []Mat34, observations []Vec2) (Vec3, bool) {
	views := make([]Mat34, len(best.inliers))
	obs := make([]Vec2, len(best.inliers))
	for k, idx := range best.inliers {
		views[k] = projections[idx]
		obs[k] = observations[idx]
	}
	if len(views) < 2 {
		return best.point, true // shouldn't happen given MinInliersWeaker>=2.
	}
	refined, ok := triangulateDLT(views, obs)
	if !ok {
		return best.point, true // refinement degenerate: fall back to the sample solution.
	}
	return refined, true
}
