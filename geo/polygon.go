// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// PolygonSource distinguishes polygons the user drew from ones mesh
// extraction (topo) produced, so a re-run of extraction can clear only
// its own output.
type PolygonSource int

const (
	PolygonUser PolygonSource = iota
	PolygonAuto
)

// Polygon is an ordered list of Vertex handles, at least 3 for a live
// polygon. A Polygon referencing an unreconstructed vertex is
// hidden at render time, not deleted.
type Polygon struct {
	Vertices []VertexHandle
	Source   PolygonSource
}

// AddPolygon creates a Polygon referencing the given vertices. It does
// not validate that the vertices exist or are reconstructed; visibility
// is enforced at render time via PolygonVisible, not at creation.
func (s *Store) AddPolygon(vs []VertexHandle, src PolygonSource) PolygonHandle {
	cp := append([]VertexHandle(nil), vs...)
	h := s.polygons.add(Polygon{Vertices: cp, Source: src})
	return PolygonHandle{h: h}
}

// Polygon returns a copy of p's vertex list. ok is false for a stale handle.
func (s *Store) Polygon(p PolygonHandle) (Polygon, bool) {
	return s.polygons.get(p.h)
}

// ErasePolygon frees the polygon slot. This never deletes the
// vertices it referenced; vertices are independent entities.
func (s *Store) ErasePolygon(p PolygonHandle) bool {
	return s.polygons.free(p.h)
}

// ErasePolygonsBySource removes every live polygon tagged src. Used by
// topo.ExtractMesh to clear a previous auto-generated mesh before
// appending a fresh one, without touching user-drawn polygons.
func (s *Store) ErasePolygonsBySource(src PolygonSource) {
	var doomed []PolygonHandle
	s.polygons.each(func(h handle, poly *Polygon) {
		if poly.Source == src {
			doomed = append(doomed, PolygonHandle{h: h})
		}
	})
	for _, h := range doomed {
		s.polygons.free(h.h)
	}
}

// PolygonVisible reports whether every vertex in the polygon exists and
// is reconstructed: the condition under which it should be rendered.
func (s *Store) PolygonVisible(p PolygonHandle) bool {
	poly, ok := s.polygons.get(p.h)
	if !ok {
		return false
	}
	for _, v := range poly.Vertices {
		vx, ok := s.vertices.get(v.h)
		if !ok || !vx.Reconstructed {
			return false
		}
	}
	return true
}

// PolygonsReferencing iterates every live polygon that references v.
func (s *Store) PolygonsReferencing(v VertexHandle, fn func(PolygonHandle, *Polygon)) {
	s.polygons.each(func(h handle, poly *Polygon) {
		for _, pv := range poly.Vertices {
			if pv == v {
				fn(PolygonHandle{h: h}, poly)
				return
			}
		}
	})
}

// EachPolygon iterates every live polygon.
func (s *Store) EachPolygon(fn func(PolygonHandle, *Polygon)) {
	s.polygons.each(func(h handle, poly *Polygon) { fn(PolygonHandle{h: h}, poly) })
}
