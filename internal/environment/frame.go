// Package environment implements Hemlock's lexically-scoped variable
// frames: an ordered name/value/const triple list backed by a DJB2
// open-addressing hash index, chained to a parent frame, and served from
// a free-list pool to avoid a fresh allocation on every function call and
// block scope.
package environment

import (
	"sync/atomic"

	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

// DefaultCapacity is the number of name slots a freshly pooled Frame is
// pre-sized for before it must grow.
const DefaultCapacity = 8

var frameIDs atomic.Uint64

// Frame is one lexical scope: function body, block, or module root.
// Frames chain to Parent to implement lexical lookup; the chain is
// walked outward on every Get/Set miss in the local frame.
type Frame struct {
	id       uint64
	names    []string
	values   []value.Value
	consts   []bool
	borrowed []bool // true if the name slot aliases a parent's storage rather than owning it
	index    []int32
	Parent   *Frame

	pool *Pool // non-nil if this frame was checked out from a Pool; Release returns it there
}

// EnvID satisfies value.Environment so a *Frame can be captured directly
// inside a FunctionObj as its closure environment.
func (f *Frame) EnvID() uint64 { return f.id }

func newFrame(capacity int) *Frame {
	f := &Frame{id: frameIDs.Add(1)}
	f.reset(capacity)
	return f
}

func (f *Frame) reset(capacity int) {
	if cap(f.names) != capacity {
		f.names = make([]string, 0, capacity)
		f.values = make([]value.Value, 0, capacity)
		f.consts = make([]bool, 0, capacity)
		f.borrowed = make([]bool, 0, capacity)
	} else {
		f.names = f.names[:0]
		f.values = f.values[:0]
		f.consts = f.consts[:0]
		f.borrowed = f.borrowed[:0]
	}
	indexSize := nextPow2(capacity * 2)
	if cap(f.index) != indexSize {
		f.index = make([]int32, indexSize)
	} else {
		f.index = f.index[:indexSize]
	}
	for i := range f.index {
		f.index[i] = -1
	}
	f.Parent = nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p < 4 {
		p = 4
	}
	return p
}

// djb2 hashes a variable name for the open-addressing index.
func djb2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

func (f *Frame) slotFor(name string) int {
	if len(f.index) == 0 {
		return -1
	}
	mask := uint32(len(f.index) - 1)
	i := djb2(name) & mask
	for probes := 0; probes < len(f.index); probes++ {
		slot := f.index[i]
		if slot == -1 {
			return -1
		}
		if f.names[slot] == name {
			return int(slot)
		}
		i = (i + 1) & mask
	}
	return -1
}

func (f *Frame) insertIndex(name string, slot int) {
	if len(f.names) > len(f.index)/2 {
		f.growIndex()
	}
	mask := uint32(len(f.index) - 1)
	i := djb2(name) & mask
	for f.index[i] != -1 {
		i = (i + 1) & mask
	}
	f.index[i] = int32(slot)
}

func (f *Frame) growIndex() {
	newSize := len(f.index) * 2
	if newSize == 0 {
		newSize = 8
	}
	f.index = make([]int32, newSize)
	for i := range f.index {
		f.index[i] = -1
	}
	mask := uint32(newSize - 1)
	for slot, name := range f.names {
		i := djb2(name) & mask
		for f.index[i] != -1 {
			i = (i + 1) & mask
		}
		f.index[i] = int32(slot)
	}
}

// Define introduces a new binding in the local frame. It fails with
// NameError if name is already bound in this frame; define never
// shadows within the same scope, only across nested ones.
func (f *Frame) Define(name string, v value.Value, isConst bool) error {
	if slot := f.slotFor(name); slot != -1 {
		return herr.New(herr.NameError, "%q is already defined in this scope", name)
	}
	slot := len(f.names)
	f.names = append(f.names, name)
	f.values = append(f.values, v)
	f.consts = append(f.consts, isConst)
	f.borrowed = append(f.borrowed, false)
	f.insertIndex(name, slot)
	return nil
}

// Get resolves name by searching the local frame first (position 0 fast
// path, then the hash index), then walking Parent chains outward.
func (f *Frame) Get(name string) (value.Value, bool) {
	for fr := f; fr != nil; fr = fr.Parent {
		if len(fr.names) > 0 && fr.names[0] == name {
			return fr.values[0], true
		}
		if slot := fr.slotFor(name); slot != -1 {
			return fr.values[slot], true
		}
	}
	return value.Value{}, false
}

// Set assigns to an existing binding, searching outward through Parent
// frames the same way Get does. It returns ConstError if the binding is
// const. If name is undeclared anywhere in the chain, Set implicitly
// defines it as a new mutable binding in the innermost frame (f) rather
// than failing.
func (f *Frame) Set(name string, v value.Value) error {
	for fr := f; fr != nil; fr = fr.Parent {
		slot := -1
		if len(fr.names) > 0 && fr.names[0] == name {
			slot = 0
		} else if s := fr.slotFor(name); s != -1 {
			slot = s
		}
		if slot == -1 {
			continue
		}
		if fr.consts[slot] {
			return herr.New(herr.ConstError, "cannot assign to const %q", name)
		}
		fr.values[slot].Release()
		fr.values[slot] = v
		return nil
	}
	return f.Define(name, v, false)
}

// Len reports how many bindings are defined directly in f (not
// counting parents).
func (f *Frame) Len() int { return len(f.names) }

// releaseBindings drops every non-borrowed value this frame owns, run
// when a frame is returned to its pool or torn down permanently.
func (f *Frame) releaseBindings() {
	for i, v := range f.values {
		if !f.borrowed[i] {
			v.Release()
		}
	}
}
