// Package value implements Hemlock's tagged Value representation: a small
// fixed-size struct for primitives (null, bool, the ten numeric types
// i8..i64/u8..u64/f32/f64, rune, ptr) plus a
// reference-counted pointer to a heapObject for strings, buffers, arrays,
// objects, functions, tasks, channels, files, and sockets.
package value

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Tag identifies which variant a Value holds.
type Tag byte

const (
	TagNull Tag = iota
	TagBool
	TagI8
	TagI16
	TagI32
	TagI64
	TagU8
	TagU16
	TagU32
	TagU64
	TagF32
	TagF64
	TagRune
	TagPtr
	TagHeap
)

// Value is the universal dynamically-typed runtime value. Primitives are
// stored inline in Bits; heap-allocated variants set Heap to a non-nil
// heapObject and leave Bits unused.
type Value struct {
	Tag  Tag
	Bits uint64
	Heap HeapObject
}

// HeapObject is implemented by every reference-counted heap variant.
type HeapObject interface {
	header() *Header
	Kind() string
}

// Header is embedded in every heap variant and carries the reference
// count and the double-free guard described by the data model.
type Header struct {
	refcount atomic.Int64
	freed    atomic.Bool
}

// NewHeader constructs a Header with a reference count of one, for heap
// variants defined outside this package (e.g. internal/task's TaskObj,
// internal/channel's ChannelObj) that embed Header to satisfy HeapObject.
func NewHeader() Header {
	return newHeader()
}

func newHeader() Header {
	h := Header{}
	h.refcount.Store(1)
	return h
}

func (h *Header) header() *Header { return h }

// Retain increments v's reference count. It is a no-op for primitives.
func (v Value) Retain() Value {
	if v.Tag == TagHeap && v.Heap != nil {
		v.Heap.header().refcount.Add(1)
	}
	return v
}

// Release decrements v's reference count, freeing the underlying heap
// object exactly once when the count reaches zero. Release on an
// already-freed value is a safe no-op.
func (v Value) Release() {
	if v.Tag != TagHeap || v.Heap == nil {
		return
	}
	h := v.Heap.header()
	if h.freed.Load() {
		return
	}
	if h.refcount.Add(-1) == 0 {
		if h.freed.CompareAndSwap(false, true) {
			if d, ok := v.Heap.(dropper); ok {
				d.drop()
			}
		}
	}
}

// dropper is implemented by heap variants that hold references to other
// Values (arrays, objects, functions) and must release them on free.
type dropper interface {
	drop()
}

// Constructors for primitive values.

func Null() Value        { return Value{Tag: TagNull} }
func Bool(b bool) Value  { v := Value{Tag: TagBool}; if b { v.Bits = 1 }; return v }
func I8(n int8) Value    { return Value{Tag: TagI8, Bits: uint64(uint8(n))} }
func I16(n int16) Value  { return Value{Tag: TagI16, Bits: uint64(uint16(n))} }
func I32(n int32) Value  { return Value{Tag: TagI32, Bits: uint64(uint32(n))} }
func I64(n int64) Value  { return Value{Tag: TagI64, Bits: uint64(n)} }
func U8(n uint8) Value   { return Value{Tag: TagU8, Bits: uint64(n)} }
func U16(n uint16) Value { return Value{Tag: TagU16, Bits: uint64(n)} }
func U32(n uint32) Value { return Value{Tag: TagU32, Bits: uint64(n)} }
func U64(n uint64) Value { return Value{Tag: TagU64, Bits: n} }
func F32(f float32) Value { return Value{Tag: TagF32, Bits: uint64(math.Float32bits(f))} }
func F64(f float64) Value { return Value{Tag: TagF64, Bits: math.Float64bits(f)} }
func Rune(r rune) Value  { return Value{Tag: TagRune, Bits: uint64(uint32(r))} }
func Ptr(p uintptr) Value { return Value{Tag: TagPtr, Bits: uint64(p)} }

func (v Value) IsNull() bool { return v.Tag == TagNull }

func (v Value) AsBool() bool   { return v.Bits != 0 }
func (v Value) AsI8() int8     { return int8(uint8(v.Bits)) }
func (v Value) AsI16() int16   { return int16(uint16(v.Bits)) }
func (v Value) AsI32() int32   { return int32(uint32(v.Bits)) }
func (v Value) AsI64() int64   { return int64(v.Bits) }
func (v Value) AsU8() uint8    { return uint8(v.Bits) }
func (v Value) AsU16() uint16  { return uint16(v.Bits) }
func (v Value) AsU32() uint32  { return uint32(v.Bits) }
func (v Value) AsU64() uint64  { return v.Bits }
func (v Value) AsF32() float32 { return math.Float32frombits(uint32(v.Bits)) }
func (v Value) AsF64() float64 { return math.Float64frombits(v.Bits) }
func (v Value) AsRune() rune   { return rune(uint32(v.Bits)) }
func (v Value) AsPtr() uintptr { return uintptr(v.Bits) }

// IsTruthy implements Hemlock's truthiness rules: null and false are
// falsy, zero numerics are falsy, empty strings/arrays/objects are
// falsy, everything else is truthy.
func (v Value) IsTruthy() bool {
	switch v.Tag {
	case TagNull:
		return false
	case TagBool:
		return v.AsBool()
	case TagI8, TagI16, TagI32, TagI64, TagU8, TagU16, TagU32, TagU64:
		return numToI64(v) != 0
	case TagF32, TagF64:
		return numToF64(v) != 0
	case TagRune:
		return v.AsRune() != 0
	case TagPtr:
		return v.AsPtr() != 0
	case TagHeap:
		switch h := v.Heap.(type) {
		case *StringObj:
			return len(h.bytes) > 0
		case *ArrayObj:
			return len(h.Elems) > 0
		case *ObjectObj:
			return len(h.Keys) > 0
		}
		return true
	}
	return true
}

// TypeName returns the Hemlock-visible type name of v, used in TypeError
// messages.
func (v Value) TypeName() string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagI8:
		return "i8"
	case TagI16:
		return "i16"
	case TagI32:
		return "i32"
	case TagI64:
		return "i64"
	case TagU8:
		return "u8"
	case TagU16:
		return "u16"
	case TagU32:
		return "u32"
	case TagU64:
		return "u64"
	case TagF32:
		return "f32"
	case TagF64:
		return "f64"
	case TagRune:
		return "rune"
	case TagPtr:
		return "ptr"
	case TagHeap:
		if v.Heap == nil {
			return "null"
		}
		return v.Heap.Kind()
	}
	return "unknown"
}

func (v Value) String() string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagBool:
		return fmt.Sprintf("%t", v.AsBool())
	case TagI8:
		return fmt.Sprintf("%d", v.AsI8())
	case TagI16:
		return fmt.Sprintf("%d", v.AsI16())
	case TagI32:
		return fmt.Sprintf("%d", v.AsI32())
	case TagI64:
		return fmt.Sprintf("%d", v.AsI64())
	case TagU8:
		return fmt.Sprintf("%d", v.AsU8())
	case TagU16:
		return fmt.Sprintf("%d", v.AsU16())
	case TagU32:
		return fmt.Sprintf("%d", v.AsU32())
	case TagU64:
		return fmt.Sprintf("%d", v.AsU64())
	case TagF32:
		return fmt.Sprintf("%g", v.AsF32())
	case TagF64:
		return fmt.Sprintf("%g", v.AsF64())
	case TagRune:
		return string(v.AsRune())
	case TagPtr:
		return fmt.Sprintf("0x%x", v.AsPtr())
	case TagHeap:
		return v.Heap.Kind()
	}
	return ""
}
