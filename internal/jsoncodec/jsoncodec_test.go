package jsoncodec

import (
	"strings"
	"testing"

	"github.com/hemlang/hemlock/internal/value"
)

func TestMarshalPrimitives(t *testing.T) {
	s, err := Marshal(value.NewArray([]value.Value{value.I32(1), value.Bool(true), value.Null(), value.NewString("hi")}))
	if err != nil {
		t.Fatal(err)
	}
	want := `[1,true,null,"hi"]`
	if s != want {
		t.Fatalf("got %q want %q", s, want)
	}
}

func TestMarshalCycleDetection(t *testing.T) {
	arr := value.NewArray(nil)
	a := arr.Heap.(*value.ArrayObj)
	a.Elems = append(a.Elems, arr)
	if _, err := Marshal(arr); err == nil {
		t.Fatal("expected SerializationError on cyclic array")
	}
}

// Equivalent to: const o = {a:1, b:[2,3]}; print(serialize(o));
// -> exactly `{"a":1,"b":[2,3]}`.
func TestScenarioSerializeNestedObject(t *testing.T) {
	o := value.NewObject()
	obj := o.Heap.(*value.ObjectObj)
	obj.Set("a", value.I32(1))
	obj.Set("b", value.NewArray([]value.Value{value.I32(2), value.I32(3)}))

	s, err := Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":1,"b":[2,3]}`
	if s != want {
		t.Fatalf("got %q want %q", s, want)
	}
}

// Equivalent to: let a = {}; a.self = a; try { serialize(a); } catch (e) { print(e); }
// -> a message containing "circular reference".
func TestScenarioSerializeCircularObjectErrorMessage(t *testing.T) {
	o := value.NewObject()
	obj := o.Heap.(*value.ObjectObj)
	obj.Set("self", o)

	_, err := Marshal(o)
	if err == nil {
		t.Fatal("expected a SerializationError for a self-referencing object")
	}
	if !strings.Contains(err.Error(), "circular reference") {
		t.Fatalf("error %q does not contain %q", err.Error(), "circular reference")
	}
}

func TestUnmarshalNumericWidening(t *testing.T) {
	v, err := Unmarshal("42")
	if err != nil {
		t.Fatal(err)
	}
	if v.Tag != value.TagI32 || v.AsI32() != 42 {
		t.Fatalf("got tag=%v val=%v, want i32 42", v.Tag, v)
	}

	v, err = Unmarshal("3.14")
	if err != nil {
		t.Fatal(err)
	}
	if v.Tag != value.TagF64 {
		t.Fatalf("expected f64 for fractional literal, got %v", v.Tag)
	}

	v, err = Unmarshal("99999999999")
	if err != nil {
		t.Fatal(err)
	}
	if v.Tag != value.TagI64 {
		t.Fatalf("expected i64 for out-of-i32-range integer, got %v", v.Tag)
	}
}

func TestUnmarshalObjectAndEscapes(t *testing.T) {
	v, err := Unmarshal(`{"a": 1, "b": "line\nbreak"}`)
	if err != nil {
		t.Fatal(err)
	}
	o := v.Heap.(*value.ObjectObj)
	a, _ := o.Get("a")
	if a.AsI32() != 1 {
		t.Fatalf("a = %v want 1", a)
	}
	b, _ := o.Get("b")
	if b.Heap.(*value.StringObj).Bytes() != "line\nbreak" {
		t.Fatalf("b = %q, want escaped newline decoded", b.Heap.(*value.StringObj).Bytes())
	}
}

func TestRoundTrip(t *testing.T) {
	obj := value.NewObject()
	o := obj.Heap.(*value.ObjectObj)
	o.Set("x", value.I32(1))
	o.Set("y", value.NewArray([]value.Value{value.I32(2), value.I32(3)}))
	s, err := Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	v, err := Unmarshal(s)
	if err != nil {
		t.Fatal(err)
	}
	back := v.Heap.(*value.ObjectObj)
	x, _ := back.Get("x")
	if x.AsI32() != 1 {
		t.Fatalf("round-tripped x = %v want 1", x)
	}
}
