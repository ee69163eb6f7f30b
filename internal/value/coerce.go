package value

import "github.com/hemlang/hemlock/internal/herr"

// tagForTypeName maps a type annotation's spelling to its Tag, for the
// ten numeric primitives plus rune/bool/ptr. Non-numeric type names
// (string, array, object, function, and heap kinds) are not covered
// here since they never participate in numeric coercion.
func tagForTypeName(name string) (Tag, bool) {
	switch name {
	case "i8":
		return TagI8, true
	case "i16":
		return TagI16, true
	case "i32":
		return TagI32, true
	case "i64":
		return TagI64, true
	case "u8":
		return TagU8, true
	case "u16":
		return TagU16, true
	case "u32":
		return TagU32, true
	case "u64":
		return TagU64, true
	case "f32":
		return TagF32, true
	case "f64":
		return TagF64, true
	case "rune":
		return TagRune, true
	case "bool":
		return TagBool, true
	case "ptr":
		return TagPtr, true
	}
	return 0, false
}

// CoerceToType converts v to the type named by typeName, per the call-
// semantics contract for typed parameters and return values: numeric
// widening/narrowing between any of the ten numeric tags succeeds,
// "" (no annotation) is a no-op, and everything else requires an exact
// type-name match (TypeName equality) or raises TypeError.
func CoerceToType(v Value, typeName string) (Value, error) {
	if typeName == "" || typeName == "any" {
		return v, nil
	}
	if wantTag, ok := tagForTypeName(typeName); ok {
		if v.IsNull() {
			return Value{}, herr.New(herr.TypeError, "cannot convert null to %s", typeName)
		}
		if wantTag == TagRune || wantTag == TagBool || wantTag == TagPtr {
			if v.Tag != wantTag {
				return Value{}, herr.New(herr.TypeError, "cannot convert %s to %s", v.TypeName(), typeName)
			}
			return v, nil
		}
		if !isNumeric(v) {
			return Value{}, herr.New(herr.TypeError, "cannot convert %s to %s", v.TypeName(), typeName)
		}
		switch {
		case isFloatTag(wantTag):
			return wrapFloat(wantTag, numToF64(v)), nil
		case isUnsignedTag(wantTag):
			return wrapIntegral(wantTag, 0, numToU64(v)), nil
		default:
			return wrapIntegral(wantTag, numToI64(v), 0), nil
		}
	}
	if v.TypeName() != typeName {
		return Value{}, herr.New(herr.TypeError, "expected %s, got %s", typeName, v.TypeName())
	}
	return v, nil
}
