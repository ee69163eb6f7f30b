// Package jsoncodec implements Hemlock's hand-written JSON serializer
// and parser over internal/value.Value, including cycle detection on
// encode and i32/i64/f64 numeric widening on decode. This is
// deliberately not built on encoding/json: the runtime's string
// concatenation and print builtins need a single-pass, single-buffer
// serialization over the tagged Value representation itself, not over
// a Go struct tree.
package jsoncodec

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

func init() {
	value.Serializer = func(v value.Value) (string, error) {
		return Marshal(v)
	}
}

// Marshal serializes v to a JSON string, detecting reference cycles
// through arrays/objects via a visited-pointer set and failing with
// SerializationError rather than recursing forever.
func Marshal(v value.Value) (string, error) {
	var b strings.Builder
	visited := map[value.HeapObject]bool{}
	if err := encode(&b, v, visited); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encode(b *strings.Builder, v value.Value, visited map[value.HeapObject]bool) error {
	switch v.Tag {
	case value.TagNull:
		b.WriteString("null")
		return nil
	case value.TagBool:
		if v.AsBool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
		return nil
	case value.TagI32:
		b.WriteString(strconv.FormatInt(int64(v.AsI32()), 10))
		return nil
	case value.TagI64:
		b.WriteString(strconv.FormatInt(v.AsI64(), 10))
		return nil
	case value.TagF64:
		b.WriteString(strconv.FormatFloat(v.AsF64(), 'g', -1, 64))
		return nil
	case value.TagRune:
		return encodeStringLiteral(b, string(v.AsRune()))
	case value.TagHeap:
		return encodeHeap(b, v, visited)
	}
	return herr.New(herr.SerializationError, "cannot serialize value of unknown tag")
}

func encodeHeap(b *strings.Builder, v value.Value, visited map[value.HeapObject]bool) error {
	switch h := v.Heap.(type) {
	case *value.StringObj:
		return encodeStringLiteral(b, h.Bytes())
	case *value.ArrayObj:
		if visited[h] {
			return herr.New(herr.SerializationError, "circular reference detected in array")
		}
		visited[h] = true
		defer delete(visited, h)
		b.WriteByte('[')
		for i, e := range h.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encode(b, e, visited); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case *value.ObjectObj:
		if visited[h] {
			return herr.New(herr.SerializationError, "circular reference detected in object")
		}
		visited[h] = true
		defer delete(visited, h)
		b.WriteByte('{')
		for i, k := range h.Keys {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeStringLiteral(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			val, _ := h.Get(k)
			if err := encode(b, val, visited); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	default:
		return herr.New(herr.SerializationError, "cannot serialize %s to JSON", v.TypeName())
	}
}

// encodeStringLiteral writes s as a JSON string literal, escaping the
// characters JSON requires (quote, backslash, control characters) and
// passing everything else through verbatim (the "escape-free fast
// path" for strings with no special characters).
func encodeStringLiteral(b *strings.Builder, s string) error {
	b.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return herr.New(herr.SerializationError, "invalid UTF-8 in string")
		}
		if needsEscape(r) {
			b.WriteString(s[start:i])
			writeEscaped(b, r)
			i += size
			start = i
			continue
		}
		i += size
	}
	b.WriteString(s[start:])
	b.WriteByte('"')
	return nil
}

func needsEscape(r rune) bool {
	return r == '"' || r == '\\' || r < 0x20
}

func writeEscaped(b *strings.Builder, r rune) {
	switch r {
	case '"':
		b.WriteString(`\"`)
	case '\\':
		b.WriteString(`\\`)
	case '\n':
		b.WriteString(`\n`)
	case '\t':
		b.WriteString(`\t`)
	case '\r':
		b.WriteString(`\r`)
	default:
		b.WriteString(`\u`)
		const hex = "0123456789abcdef"
		n := uint16(r)
		b.WriteByte(hex[(n>>12)&0xf])
		b.WriteByte(hex[(n>>8)&0xf])
		b.WriteByte(hex[(n>>4)&0xf])
		b.WriteByte(hex[n&0xf])
	}
}
