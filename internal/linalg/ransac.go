// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package linalg holds the RANSAC sampling helper shared by mvg's
// triangulation, resection and plane-fit routines. Each of those routines
// runs its own score/accept loop around it.
package linalg

import "math/rand"

// SampleIndices draws k distinct indices from [0,n) using rng. Used to
// pick the minimal view pair for triangulation (k=2) and the minimal
// point set for resection (k=6). Returns fewer than k indices only if
// n < k, which callers treat as a degenerate trial.
func SampleIndices(n, k int, rng *rand.Rand) []int {
	if k > n {
		k = n
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return append([]int(nil), pool[:k]...)
}
