// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package nrm

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// point3 is a reconstructed vertex's world position plus its index into
// the pass's vertex-handle slice, so k-NN results can be mapped back to a
// geo.VertexHandle without carrying the handle through the tree itself.
type point3 struct {
	x, y, z float64
	idx     int
}

func axisVal(p point3, axis int) float64 {
	switch axis {
	case 0:
		return p.x
	case 1:
		return p.y
	default:
		return p.z
	}
}

func distSq(a, b point3) float64 {
	dx, dy, dz := a.x-b.x, a.y-b.y, a.z-b.z
	return dx*dx + dy*dy + dz*dz
}

// Compare implements kdtree.Comparable: the signed distance of p from the
// splitting plane through c perpendicular to dimension d.
func (p point3) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return axisVal(p, int(d)) - axisVal(c.(point3), int(d))
}

// Dims implements kdtree.Comparable.
func (p point3) Dims() int { return 3 }

// Distance implements kdtree.Comparable as the squared Euclidean distance,
// matching distSq used elsewhere in this package.
func (p point3) Distance(c kdtree.Comparable) float64 { return distSq(p, c.(point3)) }

// points3 adapts a []point3 to kdtree.Interface, the sortable/partitionable
// view gonum's tree builder needs to lay out a balanced tree.
type points3 []point3

func (p points3) Len() int                              { return len(p) }
func (p points3) Index(i int) kdtree.Comparable         { return p[i] }
func (p points3) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot partitions p along dimension d and returns the index of its
// median element, the split point the tree builder recurses around. A
// full sort satisfies the partition contract (everything before the
// median is <=, everything after is >=) without relying on an unexported
// selection routine.
func (p points3) Pivot(d kdtree.Dim) int {
	sort.Slice(p, func(i, j int) bool { return axisVal(p[i], int(d)) < axisVal(p[j], int(d)) })
	return len(p) / 2
}

// buildKDTree builds a gonum k-d tree, once per NRM pass, over points. It
// reorders its input slice via Pivot's partitioning but does not retain it
// beyond the tree itself.
func buildKDTree(points []point3) *kdtree.Tree {
	return kdtree.New(points3(points), false)
}

// kNearest returns up to k points nearest to query (excluding query
// itself, matched by index), using the tree built by buildKDTree.
func kNearest(tree *kdtree.Tree, query point3, k int) []point3 {
	// k+1 because query is itself a member of the tree and must be
	// filtered back out below.
	keeper := kdtree.NewNKeeper(k + 1)
	tree.NearestSet(keeper, query)

	out := make([]point3, 0, k)
	for _, cd := range keeper.Heap {
		p, ok := cd.Comparable.(point3)
		if !ok || p.idx == query.idx {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return distSq(out[i], query) < distSq(out[j], query) })
	if len(out) > k {
		out = out[:k]
	}
	return out
}
