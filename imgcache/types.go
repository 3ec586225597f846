// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package imgcache is a bounded, two-resolution image cache with an
// asynchronous loader, reference-counted requests, and GPU-texture
// lifecycle hooks. A single background worker decodes and resizes images
// off the caller's thread; all cache state lives behind one mutex.
package imgcache

import "image"

// Quality selects which resolution tier a Request wants.
type Quality int

const (
	Low Quality = iota
	Full
	// Continuous delivers Low as soon as it is available and upgrades to
	// Full once that tier is ready, without ever un-setting done.
	Continuous
)

// ContentKind selects how much of the source image a Request wants.
type ContentKind int

const (
	All ContentKind = iota
	Region
	Centered
)

// Content describes the sub-image (if any) a Request wants cut from the
// resident tier.
type Content struct {
	Kind ContentKind

	// Region: normalised top-left (x,y) and size (w,h) in the original
	// image frame, each in [0,1].
	X, Y, W, H float64

	// Centered: pixel-sized box around (cx,cy) with half-extents (sx,sy),
	// all in original-image pixel units.
	CX, CY, SX, SY float64
}

// UVBox maps a cut sub-image back onto [0,1]^2 of the tier buffer it was
// taken from, so a GPU sampler can render the ROI at the original aspect.
type UVBox struct {
	U0, V0, U1, V1 float64
}

// shotEntry is the per-Shot cache state: at most one Full and one Low CPU
// buffer resident at a time, plus GPU texture ids once uploaded.
type shotEntry struct {
	shotID   uint64
	filename string

	width, height int // source image dimensions, known once decoded.

	full, low image.Image

	fullTotal, fullPending int
	lowTotal, lowPending   int

	fullTex, lowTex uint32 // 0 means "no texture".

	suggested bool // hint: worth prefetching even with no live request.
}

func newShotEntry(shotID uint64, filename string) *shotEntry {
	return &shotEntry{shotID: shotID, filename: filename}
}

func (e *shotEntry) needsFull() bool { return e.fullPending > 0 && e.full == nil }
func (e *shotEntry) needsLow() bool  { return e.lowPending > 0 && e.low == nil }
func (e *shotEntry) demand() int     { return e.fullPending + e.lowPending }
