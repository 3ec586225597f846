// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// ShotHandle identifies a Shot. Stale or freed handles fail
// Store.ValidShot and every operation that takes one.
type ShotHandle struct{ h handle }

// VertexHandle identifies a Vertex.
type VertexHandle struct{ h handle }

// PolygonHandle identifies a Polygon.
type PolygonHandle struct{ h handle }

// ValidShot reports whether h refers to a live Shot.
func (s *Store) ValidShot(h ShotHandle) bool { return s.shots.valid(h.h) }

// ValidVertex reports whether h refers to a live Vertex.
func (s *Store) ValidVertex(h VertexHandle) bool { return s.vertices.valid(h.h) }

// ValidPolygon reports whether h refers to a live Polygon.
func (s *Store) ValidPolygon(h PolygonHandle) bool { return s.polygons.valid(h.h) }
