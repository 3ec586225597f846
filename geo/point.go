// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// Point is a 2D observation on a specific Shot, linked to exactly one
// Vertex. Coordinates are normalised to [0,1] in the shot's image frame.
type Point struct {
	X, Y   float64
	Vertex VertexHandle
}

// ptable is a Shot's ordered table of Points. Unlike Shots/Vertices/Polygons,
// point_index is a plain array index rather than a generation-checked
// handle: it is handed back as an int and the only place it is
// stored long-term (the incidence index) is kept consistent by Store
// itself, so there is nothing external a stale generation would protect
// against.
type ptable struct {
	points []Point
	set    []bool
	free   []int
}

func newPtable() *ptable {
	return &ptable{points: []Point{}, set: []bool{}}
}

func (t *ptable) add(p Point) int {
	if len(t.free) > 0 {
		i := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.points[i] = p
		t.set[i] = true
		return i
	}
	t.points = append(t.points, p)
	t.set = append(t.set, true)
	return len(t.points) - 1
}

func (t *ptable) live(i int) bool {
	return i >= 0 && i < len(t.points) && t.set[i]
}

func (t *ptable) get(i int) (Point, bool) {
	if !t.live(i) {
		return Point{}, false
	}
	return t.points[i], true
}

func (t *ptable) update(i int, fn func(*Point)) bool {
	if !t.live(i) {
		return false
	}
	fn(&t.points[i])
	return true
}

func (t *ptable) remove(i int) bool {
	if !t.live(i) {
		return false
	}
	t.points[i] = Point{}
	t.set[i] = false
	t.free = append(t.free, i)
	return true
}

// each calls fn for every live point, in index order.
func (t *ptable) each(fn func(int, *Point)) {
	for i := range t.points {
		if t.set[i] {
			fn(i, &t.points[i])
		}
	}
}
