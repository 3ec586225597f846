// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import (
	"math"
	"math/rand"

	"github.com/damian0815/insight3d/internal/linalg"
)

const planeMinimalSample = 3

// PlaneFitOptions tunes RANSAC plane fitting.
type PlaneFitOptions struct {
	Trials            int
	DistanceThreshold float64 // Inlier radius in world units.
	MinInliers        int
	Rand              *rand.Rand
}

// DefaultPlaneFitOptions returns conservative defaults for fitting a
// local surface patch to a handful of neighbouring points.
func DefaultPlaneFitOptions() PlaneFitOptions {
	return PlaneFitOptions{
		Trials:            200,
		DistanceThreshold: 0.01,
		MinInliers:        3,
	}
}

func (o PlaneFitOptions) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(1))
}

// FitPlane robustly fits a plane a*x+b*y+c*z+d=0 (with (a,b,c) unit
// length) to a point cloud, returning the coefficients and ok=false if
// fewer than three points are given or no sample ever yields a
// well-defined plane (e.g. every triple is collinear).
func FitPlane(points []Vec3, opts PlaneFitOptions) (plane Vec4, ok bool) {
	n := len(points)
	if n < planeMinimalSample {
		return Vec4{}, false
	}
	if opts.Trials <= 0 {
		opts = DefaultPlaneFitOptions()
	}
	rng := opts.rng()

	var best Vec4
	var bestInliers int
	var bestResidual float64
	haveBest := false

	for t := 0; t < opts.Trials; t++ {
		sample := linalg.SampleIndices(n, planeMinimalSample, rng)
		if len(sample) < planeMinimalSample {
			continue
		}
		p0, p1, p2 := points[sample[0]], points[sample[1]], points[sample[2]]
		candidate, defined := planeThroughThree(p0, p1, p2)
		if !defined {
			continue // collinear triple: normal undefined.
		}
		count, residual := planeInliers(candidate, points, opts.DistanceThreshold)
		if !haveBest || count > bestInliers || (count == bestInliers && residual < bestResidual) {
			best, bestInliers, bestResidual, haveBest = candidate, count, residual, true
		}
	}
	if !haveBest || bestInliers < opts.MinInliers {
		return Vec4{}, false
	}
	return refinePlane(best, points, opts.DistanceThreshold), true
}

// planeThroughThree returns the unit-normal plane through p0,p1,p2, or
// defined=false if the three points are collinear (zero cross product).
func planeThroughThree(p0, p1, p2 Vec3) (plane Vec4, defined bool) {
	u := Vec3{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
	v := Vec3{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
	n := cross(u, v)
	length := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if length == 0 {
		return Vec4{}, false
	}
	n[0] /= length
	n[1] /= length
	n[2] /= length
	d := -(n[0]*p0[0] + n[1]*p0[1] + n[2]*p0[2])
	return Vec4{n[0], n[1], n[2], d}, true
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func planeDistance(plane Vec4, p Vec3) float64 {
	return math.Abs(plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3])
}

func planeInliers(plane Vec4, points []Vec3, threshold float64) (count int, residual float64) {
	for _, p := range points {
		d := planeDistance(plane, p)
		if d <= threshold {
			count++
			residual += d
		}
	}
	return count, residual
}

// refinePlane re-fits the plane to the winning inlier set via a
// least-squares centroid+covariance pass instead of re-sampling triples.
func refinePlane(best Vec4, points []Vec3, threshold float64) Vec4 {
	var inliers []Vec3
	for _, p := range points {
		if planeDistance(best, p) <= threshold {
			inliers = append(inliers, p)
		}
	}
	if len(inliers) < planeMinimalSample {
		return best
	}
	var cx, cy, cz float64
	for _, p := range inliers {
		cx += p[0]
		cy += p[1]
		cz += p[2]
	}
	n := float64(len(inliers))
	cx, cy, cz = cx/n, cy/n, cz/n

	// Accumulate the 3x3 covariance and take its smallest eigenvector via
	// a handful of shifted inverse power-iteration steps; cheap and
	// adequate for the small neighbourhoods this is called on.
	var xx, xy, xz, yy, yz, zz float64
	for _, p := range inliers {
		dx, dy, dz := p[0]-cx, p[1]-cy, p[2]-cz
		xx += dx * dx
		xy += dx * dy
		xz += dx * dz
		yy += dy * dy
		yz += dy * dz
		zz += dz * dz
	}
	cov := Mat33{{xx, xy, xz}, {xy, yy, yz}, {xz, yz, zz}}
	normal, ok := smallestEigenvector(cov)
	if !ok {
		return best
	}
	d := -(normal[0]*cx + normal[1]*cy + normal[2]*cz)
	refined := Vec4{normal[0], normal[1], normal[2], d}
	if refined[0]*best[0]+refined[1]*best[1]+refined[2]*best[2] < 0 {
		refined = Vec4{-refined[0], -refined[1], -refined[2], -refined[3]}
	}
	return refined
}

// smallestEigenvector finds the eigenvector of the smallest eigenvalue of
// a symmetric positive-semidefinite 3x3 matrix by inverse power iteration
// against a shift just off zero. For a planar neighbourhood the smallest
// eigenvalue sits near zero while the in-plane pair are of order the
// patch extent, so a shift well under the mean eigenvalue keeps the
// iteration locked onto the out-of-plane direction.
func smallestEigenvector(M Mat33) (Vec3, bool) {
	trace := M[0][0] + M[1][1] + M[2][2]
	shift := 1e-6 * trace / 3
	shifted := M
	shifted[0][0] -= shift
	shifted[1][1] -= shift
	shifted[2][2] -= shift
	v := Vec3{1, 1, 1}
	converged := false
	for i := 0; i < 25; i++ {
		solved, ok := solve33(shifted, v)
		if !ok {
			break
		}
		length := math.Sqrt(solved[0]*solved[0] + solved[1]*solved[1] + solved[2]*solved[2])
		if length == 0 {
			break
		}
		v = Vec3{solved[0] / length, solved[1] / length, solved[2] / length}
		converged = true
	}
	return v, converged
}

// solve33 solves M*x=b for a symmetric 3x3 M via Cramer's rule.
func solve33(M Mat33, b Vec3) (Vec3, bool) {
	d := det33(M)
	if math.Abs(d) < 1e-15 {
		return Vec3{}, false
	}
	col := func(j int, c Vec3) Mat33 {
		out := M
		for row := 0; row < 3; row++ {
			out[row][j] = c[row]
		}
		return out
	}
	x := det33(col(0, b)) / d
	y := det33(col(1, b)) / d
	z := det33(col(2, b)) / d
	return Vec3{x, y, z}, true
}
