// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import "math"

// DecomposeProjection splits a finite 3x4 projection matrix P = K*[R|T]
// into an upper-triangular calibration matrix K, a rotation R and a
// translation T, via RQ decomposition of P's leading 3x3 block using
// Givens rotations: closed-form rotation composition rather than a
// general SVD-based RQ routine, matching the hand-rolled-rotation style
// used elsewhere in this module's matrix code. Signs are
// normalised so K has a positive diagonal and R has determinant +1; ok is
// false if the leading 3x3 block is singular.
func DecomposeProjection(P Mat34) (K Mat33, R Mat33, T Vec3, ok bool) {
	M := Mat33{
		{P[0][0], P[0][1], P[0][2]},
		{P[1][0], P[1][1], P[1][2]},
		{P[2][0], P[2][1], P[2][2]},
	}
	p4 := Vec3{P[0][3], P[1][3], P[2][3]}
	// P is homogeneous, so P and -P are the same camera. Fixing the sign
	// of det(M) up front means the column flips below leave R a proper
	// rotation (det +1) without any late whole-matrix sign fix that would
	// break K*[R|T] == P.
	if det33(M) < 0 {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				M[i][j] = -M[i][j]
			}
			p4[i] = -p4[i]
		}
	}
	K, Rm := rqGivens(M)
	K, Rm = normalizeSigns(K, Rm)

	// T = K^-1 * p4, where p4 is P's last column.
	Kinv, invOK := invertUpperTriangular3(K)
	if !invOK {
		return Mat33{}, Mat33{}, Vec3{}, false
	}
	T = mulMat33Vec3(Kinv, p4)

	// Scale K so K[2][2] == 1, the conventional normalisation.
	if K[2][2] == 0 {
		return Mat33{}, Mat33{}, Vec3{}, false
	}
	scale := 1.0 / K[2][2]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			K[i][j] *= scale
		}
	}
	return K, Rm, T, true
}

// rqGivens reduces M to upper-triangular K via Givens rotations on the
// right (zeroing M[2][1], then M[2][0], then M[1][0]), accumulating the
// inverse rotations into R so that M == K * R. A singular M still
// reduces; it just leaves a zero on K's diagonal for the caller's
// inversion step to reject.
func rqGivens(M Mat33) (K, R Mat33) {
	K = M
	R = identity33()

	// Zero K[2][1] by rotating about the x-axis.
	c, s := givens(K[2][2], K[2][1])
	K, R = applyGivensRight(K, R, 1, 2, c, s)
	// Zero K[2][0] by rotating about the y-axis.
	c, s = givens(K[2][2], K[2][0])
	K, R = applyGivensRight(K, R, 0, 2, c, s)
	// Zero K[1][0] by rotating about the z-axis.
	c, s = givens(K[1][1], K[1][0])
	K, R = applyGivensRight(K, R, 0, 1, c, s)
	return K, R
}

// givens returns the cosine/sine pair whose column rotation sends (b,a)
// to (0, hypot(a,b)): c*b - s*a = 0, s*b + c*a = hypot(a,b). a==b==0
// yields the identity rotation (nothing to zero).
func givens(a, b float64) (c, s float64) {
	if a == 0 && b == 0 {
		return 1, 0
	}
	r := math.Hypot(a, b)
	return a / r, b / r
}

// applyGivensRight rotates columns i and j of K by (c,s) and applies the
// inverse rotation to rows i and j of R, keeping the product K*R fixed
// while rqGivens drives K upper-triangular column by column.
func applyGivensRight(K, R Mat33, i, j int, c, s float64) (Mat33, Mat33) {
	for row := 0; row < 3; row++ {
		ki, kj := K[row][i], K[row][j]
		K[row][i] = c*ki - s*kj
		K[row][j] = s*ki + c*kj
	}
	for col := 0; col < 3; col++ {
		ri, rj := R[i][col], R[j][col]
		R[i][col] = c*ri - s*rj
		R[j][col] = s*ri + c*rj
	}
	return K, R
}

// normalizeSigns flips signs of K's columns and R's matching rows so K
// ends up with a positive diagonal, preserving the product K*R. With
// det(K*R) already forced positive by the caller, det(R) comes out +1.
func normalizeSigns(K, R Mat33) (Mat33, Mat33) {
	for i := 0; i < 3; i++ {
		if K[i][i] < 0 {
			for row := 0; row < 3; row++ {
				K[row][i] = -K[row][i]
			}
			for col := 0; col < 3; col++ {
				R[i][col] = -R[i][col]
			}
		}
	}
	return K, R
}

func identity33() Mat33 {
	return Mat33{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func det33(M Mat33) float64 {
	return M[0][0]*(M[1][1]*M[2][2]-M[1][2]*M[2][1]) -
		M[0][1]*(M[1][0]*M[2][2]-M[1][2]*M[2][0]) +
		M[0][2]*(M[1][0]*M[2][1]-M[1][1]*M[2][0])
}

func mulMat33Vec3(M Mat33, v Vec3) Vec3 {
	return Vec3{
		M[0][0]*v[0] + M[0][1]*v[1] + M[0][2]*v[2],
		M[1][0]*v[0] + M[1][1]*v[1] + M[1][2]*v[2],
		M[2][0]*v[0] + M[2][1]*v[1] + M[2][2]*v[2],
	}
}

// invertUpperTriangular3 inverts a 3x3 upper-triangular matrix by back
// substitution. ok is false if any diagonal entry is zero.
func invertUpperTriangular3(K Mat33) (Mat33, bool) {
	if K[0][0] == 0 || K[1][1] == 0 || K[2][2] == 0 {
		return Mat33{}, false
	}
	var inv Mat33
	inv[2][2] = 1 / K[2][2]
	inv[1][1] = 1 / K[1][1]
	inv[0][0] = 1 / K[0][0]
	inv[1][2] = -K[1][2] * inv[1][1] * inv[2][2]
	inv[0][2] = -(K[0][1]*inv[1][2] + K[0][2]*inv[2][2]) * inv[0][0]
	inv[0][1] = -K[0][1] * inv[0][0] * inv[1][1]
	return inv, true
}

// ApplyEnforceFlags constrains a decomposed calibration matrix to have
// square pixels and/or zero skew, in place of whatever the decomposition
// produced.
func ApplyEnforceFlags(K Mat33, flags EnforceFlags) Mat33 {
	if flags.SquarePixels {
		K[1][1] = K[0][0]
	}
	if flags.ZeroSkew {
		K[0][1] = 0
	}
	return K
}

// EulerFromRotation extracts X-Y-Z Euler angles (radians) from a
// rotation matrix, so that RotationFromEuler reproduces it: R =
// Rx(x)*Ry(y)*Rz(z). The triple is a denormal form for display only.
// Gimbal-locked inputs (R[0][2] == +-1) return the conventional
// zero-x decomposition.
func EulerFromRotation(R Mat33) Vec3 {
	sy := R[0][2]
	if sy > 1 {
		sy = 1
	}
	if sy < -1 {
		sy = -1
	}
	const gimbalEps = 1e-9
	cy := math.Sqrt(1 - sy*sy)
	if cy > gimbalEps {
		x := math.Atan2(-R[1][2], R[2][2])
		y := math.Asin(sy)
		z := math.Atan2(-R[0][1], R[0][0])
		return Vec3{x, y, z}
	}
	// Gimbal lock: x folded into z, pitch fixed at +-90deg.
	x := 0.0
	y := math.Asin(sy)
	z := math.Atan2(R[1][0], R[1][1])
	return Vec3{x, y, z}
}

// RotationFromEuler rebuilds the rotation matrix EulerFromRotation
// extracted angles from, using the same X-Y-Z convention.
func RotationFromEuler(e Vec3) Mat33 {
	sx, cx := math.Sincos(e[0])
	sy, cy := math.Sincos(e[1])
	sz, cz := math.Sincos(e[2])

	Rx := Mat33{{1, 0, 0}, {0, cx, -sx}, {0, sx, cx}}
	Ry := Mat33{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	Rz := Mat33{{cz, -sz, 0}, {sz, cz, 0}, {0, 0, 1}}

	return mulMat33(Rx, mulMat33(Ry, Rz))
}

func mulMat33(A, B Mat33) Mat33 {
	var out Mat33
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += A[i][k] * B[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}
