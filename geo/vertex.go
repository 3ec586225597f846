// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// VertexType distinguishes user-placed vertices (VertexUser) from
// automatically created ones (VertexAuto). act.TriangulateVertices can be
// restricted to VertexUser vertices.
type VertexType int

const (
	VertexAuto VertexType = iota
	VertexUser
)

// Vertex is a 3D world point, possibly not yet reconstructed.
type Vertex struct {
	X, Y, Z       float64
	Reconstructed bool

	HasNormal  bool
	Nx, Ny, Nz float64

	Type VertexType

	// ReprojectionError is the last triangulation's residual (pixels),
	// populated by act.TriangulateVertices and surfaced read-only.
	ReprojectionError float64
}

// AddVertex creates a new, not-yet-reconstructed Vertex.
func (s *Store) AddVertex(t VertexType) VertexHandle {
	h := s.vertices.add(Vertex{Type: t})
	return VertexHandle{h: h}
}

// Vertex returns a copy of v's current state. ok is false for a stale handle.
func (s *Store) Vertex(v VertexHandle) (Vertex, bool) {
	return s.vertices.get(v.h)
}

// SetVertexCoords sets a Vertex's world coordinates and marks it
// reconstructed.
func (s *Store) SetVertexCoords(v VertexHandle, x, y, z float64) bool {
	return s.vertices.update(v.h, func(vx *Vertex) {
		vx.X, vx.Y, vx.Z = x, y, z
		vx.Reconstructed = true
	})
}

// SetVertexReprojectionError records the last triangulation residual.
func (s *Store) SetVertexReprojectionError(v VertexHandle, err float64) bool {
	return s.vertices.update(v.h, func(vx *Vertex) { vx.ReprojectionError = err })
}

// ClearVertex sets reconstructed=false and zeroes coordinates and normal.
func (s *Store) ClearVertex(v VertexHandle) bool {
	return s.vertices.update(v.h, func(vx *Vertex) {
		vx.X, vx.Y, vx.Z = 0, 0, 0
		vx.Reconstructed = false
		vx.HasNormal = false
		vx.Nx, vx.Ny, vx.Nz = 0, 0, 0
	})
}

// SetVertexNormal installs a unit normal on a reconstructed vertex.
// Callers are expected to pass a unit-length vector; Store does not
// re-normalise.
func (s *Store) SetVertexNormal(v VertexHandle, nx, ny, nz float64) bool {
	return s.vertices.update(v.h, func(vx *Vertex) {
		vx.HasNormal = true
		vx.Nx, vx.Ny, vx.Nz = nx, ny, nz
	})
}

// EraseVertex removes v from the incidence index, every Shot's points that
// referenced it, and every Polygon that referenced it, then frees the
// vertex slot.
func (s *Store) EraseVertex(v VertexHandle) bool {
	if !s.vertices.valid(v.h) {
		return false
	}
	for key := range s.incidence[v] {
		if sh, ok := s.shots.get(key.shot.h); ok {
			sh.points.remove(key.point)
		}
	}
	delete(s.incidence, v)

	s.polygons.each(func(_ handle, poly *Polygon) {
		out := poly.Vertices[:0]
		for _, pv := range poly.Vertices {
			if pv != v {
				out = append(out, pv)
			}
		}
		poly.Vertices = out
	})
	return s.vertices.free(v.h)
}

// ReconstructedVertices iterates every live vertex with Reconstructed==true.
func (s *Store) ReconstructedVertices(fn func(VertexHandle, *Vertex)) {
	s.vertices.each(func(h handle, v *Vertex) {
		if v.Reconstructed {
			fn(VertexHandle{h: h}, v)
		}
	})
}

// EachVertex iterates every live vertex.
func (s *Store) EachVertex(fn func(VertexHandle, *Vertex)) {
	s.vertices.each(func(h handle, v *Vertex) { fn(VertexHandle{h: h}, v) })
}
