package value

import "testing"

func TestAddPromotion(t *testing.T) {
	cases := []struct {
		a, b Value
		want Value
	}{
		{I32(2), I32(3), I32(5)},
		{I32(2), I64(3), I64(5)},
		{I64(2), F64(1.5), F64(3.5)},
	}
	for _, c := range cases {
		got, err := Add(c.a, c.b)
		if err != nil {
			t.Fatalf("Add(%v,%v): %v", c.a, c.b, err)
		}
		if got.Tag != c.want.Tag || !Equal(got, c.want) {
			t.Errorf("Add(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestDivAlwaysFloat(t *testing.T) {
	got, err := Div(I32(4), I32(2))
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag != TagF64 {
		t.Fatalf("Div result tag = %v, want TagF64", got.Tag)
	}
	if got.AsF64() != 2.0 {
		t.Fatalf("Div result = %v, want 2.0", got.AsF64())
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(I32(1), I32(0)); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestBitwiseRejectsFloat(t *testing.T) {
	if _, err := BitAnd(F64(1), I32(2)); err == nil {
		t.Fatal("expected TypeError for bitwise op on float")
	}
}

func TestRefcountDoubleFree(t *testing.T) {
	v := NewString("hello")
	v.Retain()
	v.Release()
	v.Release() // should not panic or double-free
	v.Release() // extra release beyond zero must stay a no-op
}

func TestStringRuneIndexing(t *testing.T) {
	v := NewString("héllo")
	s := v.Heap.(*StringObj)
	if n := s.RuneLen(); n != 5 {
		t.Fatalf("RuneLen = %d, want 5", n)
	}
	r, ok := s.RuneAt(1)
	if !ok || r != 'é' {
		t.Fatalf("RuneAt(1) = %q,%v want 'é',true", r, ok)
	}
	r, ok = s.RuneAt(-1)
	if !ok || r != 'o' {
		t.Fatalf("RuneAt(-1) = %q,%v want 'o',true", r, ok)
	}
}

func TestObjectSetOverwriteReleasesOld(t *testing.T) {
	o := NewObject()
	obj := o.Heap.(*ObjectObj)
	obj.Set("x", I32(1))
	obj.Set("x", I32(2))
	got, ok := obj.Get("x")
	if !ok || got.AsI32() != 2 {
		t.Fatalf("Get(x) = %v,%v want 2,true", got, ok)
	}
	if len(obj.Keys) != 1 {
		t.Fatalf("expected 1 key after overwrite, got %d", len(obj.Keys))
	}
}

func TestEqualityCrossNumeric(t *testing.T) {
	if !Equal(I32(2), F64(2.0)) {
		t.Fatal("expected 2 (i32) == 2.0 (f64)")
	}
	if Equal(NewString("a"), NewString("b")) {
		t.Fatal("expected distinct strings to be unequal")
	}
	if !Equal(NewString("a"), NewString("a")) {
		t.Fatal("expected equal-content strings to compare equal")
	}
}
