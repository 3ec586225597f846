// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mvg

import "math"

// Project applies P to a homogeneous world point and returns its pixel
// coordinates. ok is false only if the point projects to infinity
// (w == 0); a point behind the camera is projected like any other.
func Project(P Mat34, X Vec3) (uv Vec2, ok bool) {
	u := P[0][0]*X[0] + P[0][1]*X[1] + P[0][2]*X[2] + P[0][3]
	v := P[1][0]*X[0] + P[1][1]*X[1] + P[1][2]*X[2] + P[1][3]
	w := P[2][0]*X[0] + P[2][1]*X[1] + P[2][2]*X[2] + P[2][3]
	if w == 0 {
		return Vec2{}, false
	}
	return Vec2{u / w, v / w}, true
}

// Residual returns the reprojection error ||pi(P*X) - x||2 in pixels, or
// +Inf if X projects to infinity.
func Residual(P Mat34, X Vec3, x Vec2) float64 {
	uv, ok := Project(P, X)
	if !ok {
		return math.Inf(1)
	}
	du, dv := uv[0]-x[0], uv[1]-x[1]
	return math.Sqrt(du*du + dv*dv)
}
