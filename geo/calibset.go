// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// CalibrationSet is a named snapshot binding a subset of Shots to the
// projection matrices they carried when the snapshot was taken. Sets let
// the caller keep alternative partial calibrations of the same scene
// around (say, before and after enforcing square pixels) and switch
// between them without re-running resection.
type CalibrationSet struct {
	Name    string
	Entries []CalibrationEntry
}

// CalibrationEntry is one shot's snapshotted calibration.
type CalibrationEntry struct {
	Shot        ShotHandle
	Calibration Calibration
}

// CalibrationSetHandle identifies a CalibrationSet.
type CalibrationSetHandle struct{ h handle }

// ValidCalibrationSet reports whether h refers to a live CalibrationSet.
func (s *Store) ValidCalibrationSet(h CalibrationSetHandle) bool { return s.calibSets.valid(h.h) }

// SaveCalibrationSet snapshots the current calibration of every listed
// shot that is live and calibrated. Uncalibrated or stale shots are
// skipped rather than recorded as empty entries.
func (s *Store) SaveCalibrationSet(name string, shots []ShotHandle) CalibrationSetHandle {
	set := CalibrationSet{Name: name}
	for _, sh := range shots {
		shot, ok := s.shots.get(sh.h)
		if !ok || !shot.Calibrated {
			continue
		}
		set.Entries = append(set.Entries, CalibrationEntry{Shot: sh, Calibration: shot.Calibration})
	}
	return CalibrationSetHandle{h: s.calibSets.add(set)}
}

// CalibrationSet returns a copy of h's snapshot. ok is false for a stale
// handle.
func (s *Store) CalibrationSet(h CalibrationSetHandle) (CalibrationSet, bool) {
	set, ok := s.calibSets.get(h.h)
	if !ok {
		return CalibrationSet{}, false
	}
	set.Entries = append([]CalibrationEntry(nil), set.Entries...)
	return set, true
}

// ApplyCalibrationSet reinstalls the snapshot's matrices onto its bound
// shots, skipping entries whose shot has since been erased, and returns
// the number of shots restored.
func (s *Store) ApplyCalibrationSet(h CalibrationSetHandle) int {
	set, ok := s.calibSets.get(h.h)
	if !ok {
		return 0
	}
	restored := 0
	for _, e := range set.Entries {
		if s.SetCalibration(e.Shot, e.Calibration) {
			restored++
		}
	}
	return restored
}

// EraseCalibrationSet frees the snapshot. Shots themselves are untouched.
func (s *Store) EraseCalibrationSet(h CalibrationSetHandle) bool {
	return s.calibSets.free(h.h)
}

// EachCalibrationSet iterates every live snapshot.
func (s *Store) EachCalibrationSet(fn func(CalibrationSetHandle, *CalibrationSet)) {
	s.calibSets.each(func(h handle, set *CalibrationSet) {
		fn(CalibrationSetHandle{h: h}, set)
	})
}
