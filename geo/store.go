// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package geo is the geometric state store: shots, points-on-shots,
// vertices, polygons and the incidence relation between them, with the
// cross-linked integrity invariants enforced on every mutation. Store is
// single-threaded: the image loader worker never touches it, so no lock
// is needed.
package geo

// Store owns every entity table: one allocator per table rather than a
// single allocator shared across all of them, since shots/vertices/polygons
// have unrelated lifetimes.
type Store struct {
	shots     *pool[Shot]
	vertices  *pool[Vertex]
	polygons  *pool[Polygon]
	calibSets *pool[CalibrationSet]

	incidence map[VertexHandle]map[incidenceKey]struct{}
}

// NewStore creates an empty geometric store.
func NewStore() *Store {
	return &Store{
		shots:     newPool[Shot](),
		vertices:  newPool[Vertex](),
		polygons:  newPool[Polygon](),
		calibSets: newPool[CalibrationSet](),
		incidence: make(map[VertexHandle]map[incidenceKey]struct{}),
	}
}

// AddPoint adds a 2D observation of vertex on shot at normalised image
// coordinates (x, y). Preconditions: 0<=x,y<=1 and vertex must
// exist; returns ok=false without mutating anything if either fails, or if
// vertex is already marked on this shot (at most one point per
// (shot, vertex) pair).
func (s *Store) AddPoint(sh ShotHandle, x, y float64, vertex VertexHandle) (index int, ok bool) {
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return 0, false
	}
	if !s.vertices.valid(vertex.h) {
		return 0, false
	}
	for k := range s.incidence[vertex] {
		if k.shot == sh {
			return 0, false // vertex already marked on this shot.
		}
	}
	shot, ok := s.shots.get(sh.h)
	if !ok {
		return 0, false
	}
	idx := shot.points.add(Point{X: x, Y: y, Vertex: vertex})
	s.attachIncidence(vertex, sh, idx)
	return idx, true
}

// RemovePoint removes point i from shot, detaching its incidence entry.
// A vertex whose incidence count drops below 2 is not
// automatically deleted here; that policy decision belongs to ACT.
func (s *Store) RemovePoint(sh ShotHandle, i int) bool {
	shot, ok := s.shots.get(sh.h)
	if !ok {
		return false
	}
	p, ok := shot.points.get(i)
	if !ok {
		return false
	}
	shot.points.remove(i)
	s.detachIncidence(p.Vertex, sh, i)
	return true
}

// PointOnShot returns a copy of point i on shot.
func (s *Store) PointOnShot(sh ShotHandle, i int) (Point, bool) {
	shot, ok := s.shots.get(sh.h)
	if !ok {
		return Point{}, false
	}
	return shot.points.get(i)
}

// ForEachPointOnShot iterates shot's live points in index order. IMGCACHE
// never touches GEO, so no lock is taken here.
func (s *Store) ForEachPointOnShot(sh ShotHandle, fn func(int, Point)) {
	shot, ok := s.shots.get(sh.h)
	if !ok {
		return
	}
	shot.points.each(func(i int, p *Point) { fn(i, *p) })
}

// PointCount returns the number of live points on shot.
func (s *Store) PointCount(sh ShotHandle) int {
	shot, ok := s.shots.get(sh.h)
	if !ok {
		return 0
	}
	n := 0
	shot.points.each(func(int, *Point) { n++ })
	return n
}
