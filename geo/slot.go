// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

// slot.go holds the generic slotted-table allocator shared by the shot,
// vertex and polygon tables: a bit-packed (id, edition) scheme generalized
// into a type parameterized pool that keeps generation as a separate
// field. These handles live far longer, and survive far more add/erase
// churn, than a typical game entity id, so trading 4 bytes per handle for
// a generation that can't silently wrap into a stale-but-plausible value
// is worth it here.

// handle is the common shape of every table handle: an index into the
// pool's slots and a generation that increments on every free/reuse of
// that index. A handle is valid only while its generation matches the
// slot's current generation.
type handle struct {
	index generation
	gen   generation
}

type generation = uint32

// slot wraps a pooled value with liveness bookkeeping.
type slot[T any] struct {
	value T
	gen   generation
	set   bool // true while this slot holds a live value.
}

// pool is an append-only table of slots with a free-list of released
// indices. A released slot is only reused once its generation has been
// bumped, so handles captured before the release fail validation instead
// of silently referring to whatever got allocated into the same index.
type pool[T any] struct {
	slots []slot[T]
	freed []generation
}

func newPool[T any]() *pool[T] {
	return &pool[T]{slots: []slot[T]{}, freed: []generation{}}
}

// add allocates a new slot, preferring a released index from the free
// list, and returns its handle.
func (p *pool[T]) add(value T) handle {
	if len(p.freed) > 0 {
		idx := p.freed[len(p.freed)-1]
		p.freed = p.freed[:len(p.freed)-1]
		p.slots[idx].value = value
		p.slots[idx].set = true
		return handle{index: idx, gen: p.slots[idx].gen}
	}
	idx := generation(len(p.slots))
	p.slots = append(p.slots, slot[T]{value: value, set: true})
	return handle{index: idx, gen: 0}
}

// valid reports whether h refers to a live slot.
func (p *pool[T]) valid(h handle) bool {
	if int(h.index) >= len(p.slots) {
		return false
	}
	s := &p.slots[h.index]
	return s.set && s.gen == h.gen
}

// get returns the value for h and whether h was valid.
func (p *pool[T]) get(h handle) (T, bool) {
	if !p.valid(h) {
		var zero T
		return zero, false
	}
	return p.slots[h.index].value, true
}

// set overwrites the value for h. No-op (returns false) on a stale handle.
func (p *pool[T]) set(h handle, value T) bool {
	if !p.valid(h) {
		return false
	}
	p.slots[h.index].value = value
	return true
}

// update mutates the slot's value in place via fn. No-op on a stale handle.
func (p *pool[T]) update(h handle, fn func(*T)) bool {
	if !p.valid(h) {
		return false
	}
	fn(&p.slots[h.index].value)
	return true
}

// free releases h's slot, bumping its generation so existing copies of h
// fail validation, and queues the index for reuse.
func (p *pool[T]) free(h handle) bool {
	if !p.valid(h) {
		return false
	}
	s := &p.slots[h.index]
	var zero T
	s.value = zero
	s.set = false
	s.gen++
	p.freed = append(p.freed, h.index)
	return true
}

// each calls fn for every live slot's handle and value, in index order.
// Safe against the free-list ordering; skips released slots.
func (p *pool[T]) each(fn func(handle, *T)) {
	for i := range p.slots {
		if p.slots[i].set {
			fn(handle{index: generation(i), gen: p.slots[i].gen}, &p.slots[i].value)
		}
	}
}

// len returns the number of live slots.
func (p *pool[T]) len() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].set {
			n++
		}
	}
	return n
}
