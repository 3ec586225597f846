// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import (
	"gonum.org/v1/gonum/mat"
)

// triangulateDLT solves the minimal (or over-determined) linear
// triangulation problem: stack the two [x]_x P rows per view and take
// the right null space via SVD. Needs at least
// two views; callers are expected to have already checked that.
func triangulateDLT(views []Mat34, obs []Vec2) (X Vec3, ok bool) {
	n := len(views)
	rows := make([]float64, 0, 2*n*4)
	for i, P := range views {
		x, y := obs[i][0], obs[i][1]
		// x*P[2,:] - P[0,:]
		rows = append(rows,
			x*P[2][0]-P[0][0], x*P[2][1]-P[0][1], x*P[2][2]-P[0][2], x*P[2][3]-P[0][3],
		)
		// y*P[2,:] - P[1,:]
		rows = append(rows,
			y*P[2][0]-P[1][0], y*P[2][1]-P[1][1], y*P[2][2]-P[1][2], y*P[2][3]-P[1][3],
		)
	}
	A := mat.NewDense(2*n, 4, rows)
	v, ok := rightNullVector(A, 4)
	if !ok {
		return Vec3{}, false
	}
	w := v[3]
	if w == 0 {
		return Vec3{}, false
	}
	return Vec3{v[0] / w, v[1] / w, v[2] / w}, true
}

// resectionDLT solves for a 3x4 projection matrix P from n>=6 world<->image
// correspondences via the standard two-equations-per-point DLT formulation,
// again solved as a right null space via SVD.
func resectionDLT(world []Vec3, img []Vec2) (P Mat34, ok bool) {
	n := len(world)
	rows := make([]float64, 0, 2*n*12)
	for i := range world {
		X, Y, Z := world[i][0], world[i][1], world[i][2]
		u, v := img[i][0], img[i][1]
		// 0^T  -X^T  v*X^T
		rows = append(rows,
			0, 0, 0, 0,
			-X, -Y, -Z, -1,
			v*X, v*Y, v*Z, v,
		)
		// X^T  0^T  -u*X^T
		rows = append(rows,
			X, Y, Z, 1,
			0, 0, 0, 0,
			-u*X, -u*Y, -u*Z, -u,
		)
	}
	A := mat.NewDense(2*n, 12, rows)
	p, ok := rightNullVector(A, 12)
	if !ok {
		return Mat34{}, false
	}
	return Mat34{
		{p[0], p[1], p[2], p[3]},
		{p[4], p[5], p[6], p[7]},
		{p[8], p[9], p[10], p[11]},
	}, true
}

// rightNullVector returns the right singular vector associated with A's
// smallest singular value: the least-squares solution to A*x=0 subject to
// ||x||=1. cols must equal A's column count. ok is false when the two
// smallest singular values both vanish: the null space is then more than
// one-dimensional (e.g. a zero-baseline view pair) and no unique solution
// exists.
func rightNullVector(A *mat.Dense, cols int) ([]float64, bool) {
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return nil, false
	}
	var v mat.Dense
	svd.VTo(&v)
	values := svd.Values(nil)
	if len(values) < cols {
		return nil, false
	}
	if values[cols-2] <= 1e-10*values[0] {
		return nil, false
	}
	// Singular values are sorted descending; the last column of V is the
	// null-space direction associated with the smallest one.
	last := cols - 1
	out := make([]float64, cols)
	for i := 0; i < cols; i++ {
		out[i] = v.At(i, last)
	}
	return out, true
}
