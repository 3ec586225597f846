// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package mvg is the multi-view geometry engine: robust triangulation,
// robust camera resection, and finite-projection-matrix decomposition
// (K*R*T). Every exported function is pure (matrices and arrays in,
// fresh matrices and a success flag out), so the package holds no state
// and needs no lock. Fixed-size 3x3/4x4 transform composition is plain
// arithmetic, as is the Givens-rotation RQ decomposition, but the RANSAC
// DLT solves need a real SVD, so that part of the linear algebra is done with
// gonum.org/v1/gonum/mat and converted back to these plain array types at
// the package boundary, keeping mvg's public surface library-agnostic.
package mvg

// Vec2 is a 2D image observation (pixel or normalised coordinates,
// depending on caller convention).
type Vec2 [2]float64

// Vec3 is a 3D world point or direction.
type Vec3 [3]float64

// Vec4 is a homogeneous 4-vector, or a plane (a,b,c,d).
type Vec4 [4]float64

// Mat33 is a row-major 3x3 matrix.
type Mat33 [3][3]float64

// Mat34 is a row-major 3x4 projection matrix.
type Mat34 [3][4]float64

// EnforceFlags constrains camera resection's recovered intrinsics.
type EnforceFlags struct {
	SquarePixels bool // K[1,1] <- K[0,0] after decomposition.
	ZeroSkew     bool // K[0,1] <- 0 after decomposition.
}
