// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// Calibration is a Shot's projection, broken into the redundant forms the
// GUI and MVG both want: P is the source of truth, K/R/T/Euler/PP are kept
// consistent with it. Clearing a Shot's calibration clears
// the whole struct.
type Calibration struct {
	P  [3][4]float64 // 3x4 projection matrix, source of truth.
	K  [3][3]float64 // Intrinsics.
	R  [3][3]float64 // Rotation.
	T  [3]float64    // Translation.
	// Euler is a denormal X-Y-Z form for the GUI only; never the source
	// of truth.
	Euler      [3]float64
	PrincipalX float64
	PrincipalY float64
}

// Shot is one photograph plus its optional calibration.
type Shot struct {
	Name   string
	Width  int
	Height int

	Calibrated  bool
	Calibration Calibration

	// FocalGuess seeds resection when no prior calibration exists.
	FocalGuess float64
	// Locked shots are pinned: batch resection (act.ReconstructAll)
	// never overwrites a locked shot's calibration.
	Locked bool

	points *ptable
}

func newShot(name string, w, h int) Shot {
	return Shot{Name: name, Width: w, Height: h, points: newPtable()}
}

// AddShot creates a new Shot and returns its handle.
func (s *Store) AddShot(name string, w, h int) ShotHandle {
	h2 := s.shots.add(newShot(name, w, h))
	return ShotHandle{h: h2}
}

// Shot returns a copy of the shot's fixed-size fields (not its point
// table; use ForEachPointOnShot for that). ok is false for a stale
// handle.
func (s *Store) Shot(h ShotHandle) (Shot, bool) {
	return s.shots.get(h.h)
}

// SetCalibration installs a Shot's projection matrices, setting P, K, R,
// T, Euler and the principal point together.
func (s *Store) SetCalibration(h ShotHandle, c Calibration) bool {
	return s.shots.update(h.h, func(sh *Shot) {
		sh.Calibration = c
		sh.Calibrated = true
	})
}

// ClearCalibration removes a Shot's calibration, restoring the
// "uncalibrated means none of those fields are present" half.
func (s *Store) ClearCalibration(h ShotHandle) bool {
	return s.shots.update(h.h, func(sh *Shot) {
		sh.Calibration = Calibration{}
		sh.Calibrated = false
	})
}

// EraseShot releases the shot's point table and detaches every incidence
// entry those points held.
func (s *Store) EraseShot(h ShotHandle) bool {
	sh, ok := s.shots.get(h.h)
	if !ok {
		return false
	}
	sh.points.each(func(i int, p *Point) {
		s.detachIncidence(p.Vertex, h, i)
	})
	return s.shots.free(h.h)
}

// ShotsByCalibration iterates live shots whose Calibrated flag matches
// calibrated. Read-only query; act and nrm walk shots through EachShot
// and Incidence instead.
func (s *Store) ShotsByCalibration(calibrated bool, fn func(ShotHandle, *Shot)) {
	s.shots.each(func(h handle, sh *Shot) {
		if sh.Calibrated == calibrated {
			fn(ShotHandle{h: h}, sh)
		}
	})
}

// EachShot iterates every live shot.
func (s *Store) EachShot(fn func(ShotHandle, *Shot)) {
	s.shots.each(func(h handle, sh *Shot) { fn(ShotHandle{h: h}, sh) })
}
