// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package insighterr names the error taxonomy shared by geo, mvg, imgcache,
// topo, nrm and act. Every sentinel here is meant to be matched with
// errors.Is, never type-switched, so components can wrap them with
// fmt.Errorf("...: %w", sentinel) and still be identifiable by the caller.
package insighterr

import "errors"

// Sentinel error kinds. Names match the taxonomy, not Go types.
var (
	// InvalidHandle means a handle is stale or was never allocated.
	// Always a caller bug. imgcache, topo and act return it for a bad
	// handle; geo.Store operations report a bad handle by returning false
	// instead and do not return this error.
	InvalidHandle = errors.New("insight3d: invalid handle")

	// DegenerateInput means the caller supplied too few points, colinear
	// points, or an infinite camera where a finite one was required.
	DegenerateInput = errors.New("insight3d: degenerate input")

	// NumericalFailure means RANSAC could not meet even the weaker
	// acceptance threshold. The caller decides whether to clear state
	// or retry; insighterr never clears state itself.
	NumericalFailure = errors.New("insight3d: numerical failure")

	// CacheTooSmall means imgcache could not evict to make room for an
	// admission. The imgcache worker logs it, with a message naming the
	// tier and its occupancy, and leaves the waiting requests pending; it
	// is not returned to any caller and does not stop the process.
	CacheTooSmall = errors.New("insight3d: cache too small")

	// ThreadSpawnFailed means the imgcache worker goroutine could not be
	// started. Fatal.
	ThreadSpawnFailed = errors.New("insight3d: thread spawn failed")

	// DecodeFailed is never returned to a caller: a decode failure is
	// silently replaced with a substitute image, and imgcache does not
	// reference this sentinel. It completes the error taxonomy.
	DecodeFailed = errors.New("insight3d: decode failed")

	// TooManyRequests means imgcache's request table is full.
	TooManyRequests = errors.New("insight3d: too many requests")
)
