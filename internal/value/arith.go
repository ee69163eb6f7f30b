package value

import (
	"github.com/hemlang/hemlock/internal/herr"
)

// rank orders the full numeric promotion lattice, low to high:
// u8 < i8 < u16 < i16 < u32 < i32 < u64 < i64 < f32 < f64.
func rank(t Tag) int {
	switch t {
	case TagU8:
		return 0
	case TagI8:
		return 1
	case TagU16:
		return 2
	case TagI16:
		return 3
	case TagU32:
		return 4
	case TagI32:
		return 5
	case TagU64:
		return 6
	case TagI64:
		return 7
	case TagF32:
		return 8
	case TagF64:
		return 9
	}
	return -1
}

func isNumeric(v Value) bool {
	return rank(v.Tag) >= 0
}

func isFloatTag(t Tag) bool {
	return t == TagF32 || t == TagF64
}

func isUnsignedTag(t Tag) bool {
	return t == TagU8 || t == TagU16 || t == TagU32 || t == TagU64
}

// promote picks the winning type of the pair per the rank lattice (top-
// right wins, per spec: f64 > f32 > i64 > u64 > i32 > u32 > i16 > u16 >
// i8 > u8).
func promote(a, b Value) Tag {
	if rank(b.Tag) > rank(a.Tag) {
		return b.Tag
	}
	return a.Tag
}

// AsFloat64 widens any numeric Value to float64, for callers (e.g. the
// evaluator's ordering comparisons) that need a single common type to
// compare across the whole numeric lattice.
func AsFloat64(v Value) float64 {
	return numToF64(v)
}

func numToF64(v Value) float64 {
	switch v.Tag {
	case TagI8:
		return float64(v.AsI8())
	case TagI16:
		return float64(v.AsI16())
	case TagI32:
		return float64(v.AsI32())
	case TagI64:
		return float64(v.AsI64())
	case TagU8:
		return float64(v.AsU8())
	case TagU16:
		return float64(v.AsU16())
	case TagU32:
		return float64(v.AsU32())
	case TagU64:
		return float64(v.AsU64())
	case TagF32:
		return float64(v.AsF32())
	case TagF64:
		return v.AsF64()
	}
	return 0
}

func numToI64(v Value) int64 {
	switch v.Tag {
	case TagI8:
		return int64(v.AsI8())
	case TagI16:
		return int64(v.AsI16())
	case TagI32:
		return int64(v.AsI32())
	case TagI64:
		return v.AsI64()
	case TagU8:
		return int64(v.AsU8())
	case TagU16:
		return int64(v.AsU16())
	case TagU32:
		return int64(v.AsU32())
	case TagU64:
		return int64(v.AsU64())
	case TagF32:
		return int64(v.AsF32())
	case TagF64:
		return int64(v.AsF64())
	}
	return 0
}

func numToU64(v Value) uint64 {
	switch v.Tag {
	case TagU8:
		return uint64(v.AsU8())
	case TagU16:
		return uint64(v.AsU16())
	case TagU32:
		return uint64(v.AsU32())
	case TagU64:
		return v.AsU64()
	case TagF32:
		return uint64(v.AsF32())
	case TagF64:
		return uint64(v.AsF64())
	default:
		return uint64(numToI64(v))
	}
}

// wrapIntegral truncates n/u into the Value constructor matching t.
func wrapIntegral(t Tag, n int64, u uint64) Value {
	switch t {
	case TagI8:
		return I8(int8(n))
	case TagI16:
		return I16(int16(n))
	case TagI32:
		return I32(int32(n))
	case TagI64:
		return I64(n)
	case TagU8:
		return U8(uint8(u))
	case TagU16:
		return U16(uint16(u))
	case TagU32:
		return U32(uint32(u))
	case TagU64:
		return U64(u)
	}
	return I64(n)
}

func wrapFloat(t Tag, f float64) Value {
	if t == TagF32 {
		return F32(float32(f))
	}
	return F64(f)
}

// Add implements the + operator: numeric addition with promotion, or
// string/array concatenation when either side is a string.
func Add(a, b Value) (Value, error) {
	if a.Tag == TagHeap || b.Tag == TagHeap {
		if isStringLike(a) || isStringLike(b) {
			return NewString(Stringify(a) + Stringify(b)), nil
		}
		return Value{}, herr.New(herr.TypeError, "cannot add %s and %s", a.TypeName(), b.TypeName())
	}
	return numericBinOp(a, b,
		func(x, y int64) int64 { return x + y },
		func(x, y uint64) uint64 { return x + y },
		func(x, y float64) float64 { return x + y },
		"add")
}

func isStringLike(v Value) bool {
	if v.Tag != TagHeap {
		return false
	}
	_, ok := v.Heap.(*StringObj)
	return ok
}

// Stringify renders v for string concatenation: primitives use their
// natural textual form, arrays/objects serialize to JSON (delegated to
// the jsoncodec via the Serializer function variable to avoid an import
// cycle).
func Stringify(v Value) string {
	if v.Tag == TagHeap {
		switch h := v.Heap.(type) {
		case *StringObj:
			return h.bytes
		case *ArrayObj, *ObjectObj:
			if Serializer != nil {
				if s, err := Serializer(v); err == nil {
					return s
				}
			}
		}
	}
	return v.String()
}

// Serializer is set by internal/jsoncodec at init time so Stringify can
// render arrays/objects without value importing jsoncodec directly.
var Serializer func(Value) (string, error)

// numericBinOp promotes a and b to their common type per the lattice and
// applies the family-appropriate callback (float/signed/unsigned),
// wrapping the result back down to that common type's width.
func numericBinOp(a, b Value, iop func(int64, int64) int64, uop func(uint64, uint64) uint64, fop func(float64, float64) float64, opName string) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return Value{}, herr.New(herr.TypeError, "cannot %s %s and %s", opName, a.TypeName(), b.TypeName())
	}
	t := promote(a, b)
	switch {
	case isFloatTag(t):
		return wrapFloat(t, fop(numToF64(a), numToF64(b))), nil
	case isUnsignedTag(t):
		return wrapIntegral(t, 0, uop(numToU64(a), numToU64(b))), nil
	default:
		return wrapIntegral(t, iop(numToI64(a), numToI64(b)), 0), nil
	}
}

func Sub(a, b Value) (Value, error) {
	return numericBinOp(a, b,
		func(x, y int64) int64 { return x - y },
		func(x, y uint64) uint64 { return x - y },
		func(x, y float64) float64 { return x - y },
		"subtract")
}

func Mul(a, b Value) (Value, error) {
	return numericBinOp(a, b,
		func(x, y int64) int64 { return x * y },
		func(x, y uint64) uint64 { return x * y },
		func(x, y float64) float64 { return x * y },
		"multiply")
}

// Neg implements unary negation across the numeric lattice; negating an
// unsigned operand wraps per its width rather than erroring, matching
// the wraparound the rest of the integral operators already use.
func Neg(v Value) (Value, error) {
	if !isNumeric(v) {
		return Value{}, herr.New(herr.TypeError, "cannot negate %s", v.TypeName())
	}
	switch {
	case isFloatTag(v.Tag):
		return wrapFloat(v.Tag, -numToF64(v)), nil
	case isUnsignedTag(v.Tag):
		return wrapIntegral(v.Tag, 0, -numToU64(v)), nil
	default:
		return wrapIntegral(v.Tag, -numToI64(v), 0), nil
	}
}

// Div always produces an f64 result, per spec: division never stays
// integral even for two integer operands.
func Div(a, b Value) (Value, error) {
	if !isNumeric(a) || !isNumeric(b) {
		return Value{}, herr.New(herr.TypeError, "cannot divide %s and %s", a.TypeName(), b.TypeName())
	}
	fb := numToF64(b)
	if fb == 0 {
		return Value{}, herr.New(herr.DivisionByZero, "division by zero")
	}
	return F64(numToF64(a) / fb), nil
}

// Shl/Shr/BitAnd/BitOr/BitXor operate on integral types only; applying
// them to a float operand raises TypeError.
func requireIntegral(a, b Value, opName string) (Tag, error) {
	if isFloatTag(a.Tag) || isFloatTag(b.Tag) {
		return 0, herr.New(herr.TypeError, "cannot %s %s and %s", opName, a.TypeName(), b.TypeName())
	}
	if !isNumeric(a) || !isNumeric(b) {
		return 0, herr.New(herr.TypeError, "cannot %s %s and %s", opName, a.TypeName(), b.TypeName())
	}
	return promote(a, b), nil
}

// Shl/Shr implement arithmetic shift for signed operand types and
// logical shift for unsigned ones, per spec: "right shift of a signed
// type is arithmetic; of an unsigned type, logical." Go's native >>
// already does this for int64 vs uint64, so picking the iop/uop path by
// the promoted type's signedness is sufficient.
func Shl(a, b Value) (Value, error) {
	t, err := requireIntegral(a, b, "shift")
	if err != nil {
		return Value{}, err
	}
	if isUnsignedTag(t) {
		return wrapIntegral(t, 0, numToU64(a)<<numToU64(b)), nil
	}
	return wrapIntegral(t, numToI64(a)<<uint64(numToI64(b)), 0), nil
}

func Shr(a, b Value) (Value, error) {
	t, err := requireIntegral(a, b, "shift")
	if err != nil {
		return Value{}, err
	}
	if isUnsignedTag(t) {
		return wrapIntegral(t, 0, numToU64(a)>>numToU64(b)), nil
	}
	return wrapIntegral(t, numToI64(a)>>uint64(numToI64(b)), 0), nil
}

func BitAnd(a, b Value) (Value, error) {
	t, err := requireIntegral(a, b, "bitwise-and")
	if err != nil {
		return Value{}, err
	}
	if isUnsignedTag(t) {
		return wrapIntegral(t, 0, numToU64(a)&numToU64(b)), nil
	}
	return wrapIntegral(t, numToI64(a)&numToI64(b), 0), nil
}

func BitOr(a, b Value) (Value, error) {
	t, err := requireIntegral(a, b, "bitwise-or")
	if err != nil {
		return Value{}, err
	}
	if isUnsignedTag(t) {
		return wrapIntegral(t, 0, numToU64(a)|numToU64(b)), nil
	}
	return wrapIntegral(t, numToI64(a)|numToI64(b), 0), nil
}

func BitXor(a, b Value) (Value, error) {
	t, err := requireIntegral(a, b, "bitwise-xor")
	if err != nil {
		return Value{}, err
	}
	if isUnsignedTag(t) {
		return wrapIntegral(t, 0, numToU64(a)^numToU64(b)), nil
	}
	return wrapIntegral(t, numToI64(a)^numToI64(b), 0), nil
}

// Equal implements Hemlock's equality: numerics compare by promoted
// value across types, strings compare by content, heap references
// otherwise compare by identity.
func Equal(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		t := promote(a, b)
		switch {
		case isFloatTag(t):
			return numToF64(a) == numToF64(b)
		case isUnsignedTag(t):
			return numToU64(a) == numToU64(b)
		default:
			return numToI64(a) == numToI64(b)
		}
	}
	if a.Tag != b.Tag {
		return a.Tag == TagNull && b.Tag == TagNull
	}
	switch a.Tag {
	case TagNull:
		return true
	case TagBool:
		return a.AsBool() == b.AsBool()
	case TagRune:
		return a.AsRune() == b.AsRune()
	case TagPtr:
		return a.AsPtr() == b.AsPtr()
	case TagHeap:
		as, aok := a.Heap.(*StringObj)
		bs, bok := b.Heap.(*StringObj)
		if aok && bok {
			return as.bytes == bs.bytes
		}
		return a.Heap == b.Heap
	}
	return false
}

// Concat joins array a and b into a new array; used for array + array.
func Concat(a, b *ArrayObj) Value {
	out := make([]Value, 0, len(a.Elems)+len(b.Elems))
	for _, v := range a.Elems {
		out = append(out, v.Retain())
	}
	for _, v := range b.Elems {
		out = append(out, v.Retain())
	}
	return NewArray(out)
}
