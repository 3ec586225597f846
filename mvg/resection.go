// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import (
	"math/rand"

	"github.com/damian0815/insight3d/internal/linalg"
)

const resectionMinimalSample = 6

// ResectionOptions tunes RANSAC camera resection.
type ResectionOptions struct {
	Trials               int
	MeasurementThreshold float64
	MinInliers           int
	Flags                EnforceFlags
	Rand                 *rand.Rand
}

// DefaultResectionOptions mirrors DefaultTriangulateOptions' thresholds,
// minus the weaker tier: resection either recovers a usable camera or it
// doesn't.
func DefaultResectionOptions() ResectionOptions {
	return ResectionOptions{
		Trials:               200,
		MeasurementThreshold: 2.0,
		MinInliers:           6,
	}
}

func (o ResectionOptions) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(1))
}

// ResectionResult is a recovered camera: its projection matrix and the
// decomposition the caller stores on the shot.
type ResectionResult struct {
	P     Mat34
	K     Mat33
	R     Mat33
	T     Vec3
	Euler Vec3
}

// Resection robustly recovers a camera's projection matrix from n>=6
// world<->image correspondences (world points already reconstructed
// elsewhere). Decomposes the winning projection into K/R/T, applies the
// caller's intrinsic constraints, and rejects the result if the
// constrained K can no longer reproject the inlier set within threshold.
func Resection(world []Vec3, observations []Vec2, opts ResectionOptions) (ResectionResult, bool) {
	n := len(world)
	if n < resectionMinimalSample || n != len(observations) {
		return ResectionResult{}, false
	}
	if opts.Trials <= 0 {
		opts = DefaultResectionOptions()
	}
	rng := opts.rng()

	var bestP Mat34
	var bestInliers []int
	var bestResidual float64
	haveBest := false

	for t := 0; t < opts.Trials; t++ {
		sample := linalg.SampleIndices(n, resectionMinimalSample, rng)
		if len(sample) < resectionMinimalSample {
			continue
		}
		sw := make([]Vec3, len(sample))
		si := make([]Vec2, len(sample))
		for k, idx := range sample {
			sw[k] = world[idx]
			si[k] = observations[idx]
		}
		if degenerateSample(sw) {
			continue // colinear or coplanar world points: DLT rank-deficient.
		}
		P, ok := resectionDLT(sw, si)
		if !ok {
			continue
		}
		inliers, residual := resectionInliers(P, world, observations, opts.MeasurementThreshold)
		if !haveBest || len(inliers) > len(bestInliers) ||
			(len(inliers) == len(bestInliers) && residual < bestResidual) {
			bestP, bestInliers, bestResidual, haveBest = P, inliers, residual, true
		}
	}
	if !haveBest || len(bestInliers) < opts.MinInliers {
		return ResectionResult{}, false
	}

	// Refine: re-solve DLT on the full inlier set.
	rw := make([]Vec3, len(bestInliers))
	ri := make([]Vec2, len(bestInliers))
	for k, idx := range bestInliers {
		rw[k] = world[idx]
		ri[k] = observations[idx]
	}
	if refined, ok := resectionDLT(rw, ri); ok {
		bestP = refined
	}

	K, R, T, ok := DecomposeProjection(bestP)
	if !ok {
		return ResectionResult{}, false
	}
	K = ApplyEnforceFlags(K, opts.Flags)

	// With K constrained, rebuild P and verify the inliers still reproject
	// within threshold; a tight square_pixels/zero_skew constraint on a
	// camera that genuinely had neither is expected to fail this check.
	constrainedP := recompose(K, R, T)
	for _, idx := range bestInliers {
		if Residual(constrainedP, world[idx], observations[idx]) > opts.MeasurementThreshold {
			return ResectionResult{}, false
		}
	}

	return ResectionResult{
		P:     constrainedP,
		K:     K,
		R:     R,
		T:     T,
		Euler: EulerFromRotation(R),
	}, true
}

// degenerateSample reports whether a minimal world-point sample lies on
// (or numerically near) a common line or plane. Such configurations
// leave the DLT system rank-deficient: any null vector reprojects the
// sample perfectly, so the candidate would score as all-inlier while
// determining no camera at all.
func degenerateSample(world []Vec3) bool {
	n := float64(len(world))
	var cx, cy, cz float64
	for _, p := range world {
		cx += p[0]
		cy += p[1]
		cz += p[2]
	}
	cx, cy, cz = cx/n, cy/n, cz/n

	var xx, xy, xz, yy, yz, zz float64
	for _, p := range world {
		dx, dy, dz := p[0]-cx, p[1]-cy, p[2]-cz
		xx += dx * dx
		xy += dx * dy
		xz += dx * dz
		yy += dy * dy
		yz += dy * dz
		zz += dz * dz
	}
	cov := Mat33{{xx, xy, xz}, {xy, yy, yz}, {xz, yz, zz}}
	scale := (xx + yy + zz) / 3
	if scale <= 0 {
		return true // all points coincide.
	}
	return det33(cov) <= 1e-8*scale*scale*scale
}

func resectionInliers(P Mat34, world []Vec3, observations []Vec2, threshold float64) ([]int, float64) {
	var inliers []int
	sum := 0.0
	for i, X := range world {
		r := Residual(P, X, observations[i])
		if r <= threshold {
			inliers = append(inliers, i)
			sum += r
		}
	}
	return inliers, sum
}

// recompose rebuilds P = K*[R|T] after the caller has adjusted K.
func recompose(K, R Mat33, T Vec3) Mat34 {
	RT := Mat34{
		{R[0][0], R[0][1], R[0][2], T[0]},
		{R[1][0], R[1][1], R[1][2], T[1]},
		{R[2][0], R[2][1], R[2][2], T[2]},
	}
	var P Mat34
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
