// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package geo

import "testing"

func TestPoolAddGet(t *testing.T) {
	p := newPool[int]()
	h := p.add(42)
	v, ok := p.get(h)
	if !ok || v != 42 {
		t.Fatalf("got (%v, %v), want (42, true)", v, ok)
	}
}

func TestPoolFreeInvalidatesHandle(t *testing.T) {
	p := newPool[int]()
	h := p.add(1)
	if !p.free(h) {
		t.Fatal("expected free to succeed")
	}
	if p.valid(h) {
		t.Fatal("expected handle to be invalid after free")
	}
	if _, ok := p.get(h); ok {
		t.Fatal("expected get to fail on freed handle")
	}
}

func TestPoolReuseBumpsGeneration(t *testing.T) {
	p := newPool[int]()
	h1 := p.add(1)
	p.free(h1)
	h2 := p.add(2)
	if h1.index != h2.index {
		t.Fatalf("expected reused index, got %d != %d", h1.index, h2.index)
	}
	if h1.gen == h2.gen {
		t.Fatal("expected generation to change on reuse")
	}
	if p.valid(h1) {
		t.Fatal("stale handle from before reuse must stay invalid")
	}
	if !p.valid(h2) {
		t.Fatal("fresh handle must be valid")
	}
}

func TestPoolEachSkipsFreed(t *testing.T) {
	p := newPool[int]()
	a := p.add(1)
	p.add(2)
	p.free(a)
	seen := []int{}
	p.each(func(_ handle, v *int) { seen = append(seen, *v) })
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("expected only live value [2], got %v", seen)
	}
}

func TestPtableRoundTrip(t *testing.T) {
	pt := newPtable()
	i := pt.add(Point{X: 0.1, Y: 0.2})
	got, ok := pt.get(i)
	if !ok || got.X != 0.1 || got.Y != 0.2 {
		t.Fatalf("got (%v, %v)", got, ok)
	}
	if !pt.remove(i) {
		t.Fatal("expected remove to succeed")
	}
	if pt.live(i) {
		t.Fatal("expected index to be released")
	}
	j := pt.add(Point{X: 0.3, Y: 0.4})
	if i != j {
		t.Fatalf("expected reused index %d, got %d", i, j)
	}
}
