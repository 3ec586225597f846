// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package imgcache

import "image"

// request is the cache's internal bookkeeping for one submitted Request.
type request struct {
	gen generation
	set bool

	shotID   uint64
	filename string
	quality  Quality
	content  Content

	currentQuality Quality
	reachedLow     bool
	done           bool

	cut image.Image // owned sub-image, Region/Centered only.
	tex uint32      // owned GPU texture id, Region/Centered only.
	uv  UVBox

	// staleTex is a cut texture orphaned by a Continuous low-to-full
	// upgrade. The worker may not touch the GPU, so it parks the old id
	// here for the next main-thread GPU call to delete.
	staleTex uint32

	// owes* track which shotEntry counters this request still holds, so
	// cancel (at any point in the request's life, including after it is
	// done) and the worker's own resolution path each release a given
	// counter exactly once. See imgcache's resolution semantics table.
	owesFullPending, owesLowPending bool
	owesFullTotal, owesLowTotal     bool
}

// Handle identifies a submitted Request so the caller can poll or cancel
// it. A stale handle (already cancelled, or from a prior generation) is
// always rejected rather than silently resolved against unrelated state.
type Handle struct {
	index generation
	gen   generation
}

type generation = uint32

type requestSlot struct {
	value request
	gen   generation
	set   bool
}

// requestTable is a fixed-capacity slotted table of in-flight requests.
type requestTable struct {
	slots []requestSlot
	free  []generation
	cap   int
}

func newRequestTable(capacity int) *requestTable {
	return &requestTable{cap: capacity}
}

func (t *requestTable) len() int {
	n := 0
	for _, s := range t.slots {
		if s.set {
			n++
		}
	}
	return n
}

func (t *requestTable) add(r request) (Handle, bool) {
	if len(t.free) == 0 {
		if len(t.slots) >= t.cap {
			return Handle{}, false
		}
		t.slots = append(t.slots, requestSlot{value: r, gen: 1, set: true})
		return Handle{index: generation(len(t.slots) - 1), gen: 1}, true
	}
	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	slot := &t.slots[idx]
	slot.value = r
	slot.set = true
	return Handle{index: idx, gen: slot.gen}, true
}

func (t *requestTable) get(h Handle) (*request, bool) {
	if int(h.index) >= len(t.slots) {
		return nil, false
	}
	slot := &t.slots[h.index]
	if !slot.set || slot.gen != h.gen {
		return nil, false
	}
	return &slot.value, true
}

func (t *requestTable) remove(h Handle) bool {
	if int(h.index) >= len(t.slots) {
		return false
	}
	slot := &t.slots[h.index]
	if !slot.set || slot.gen != h.gen {
		return false
	}
	slot.set = false
	slot.value = request{}
	slot.gen++
	t.free = append(t.free, h.index)
	return true
}

func (t *requestTable) each(fn func(Handle, *request)) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.set {
			fn(Handle{index: generation(i), gen: s.gen}, &s.value)
		}
	}
}
