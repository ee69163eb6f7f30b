package environment

import (
	"testing"

	"github.com/hemlang/hemlock/internal/value"
)

func TestDefineGetPosition0FastPath(t *testing.T) {
	f := newFrame(DefaultCapacity)
	f.Define("x", value.I32(42), false)
	got, ok := f.Get("x")
	if !ok || got.AsI32() != 42 {
		t.Fatalf("Get(x) = %v,%v want 42,true", got, ok)
	}
}

func TestParentChainLookup(t *testing.T) {
	parent := newFrame(DefaultCapacity)
	parent.Define("y", value.I32(7), false)
	child := newFrame(DefaultCapacity)
	child.Parent = parent
	got, ok := child.Get("y")
	if !ok || got.AsI32() != 7 {
		t.Fatalf("Get(y) via parent = %v,%v want 7,true", got, ok)
	}
}

func TestSetConstRejected(t *testing.T) {
	f := newFrame(DefaultCapacity)
	f.Define("z", value.I32(1), true)
	if err := f.Set("z", value.I32(2)); err == nil {
		t.Fatal("expected ConstError assigning to const binding")
	}
}

func TestSetUndefinedNameImplicitlyDefines(t *testing.T) {
	f := newFrame(DefaultCapacity)
	if err := f.Set("nope", value.I32(1)); err != nil {
		t.Fatalf("expected Set on an undefined name to implicitly define it, got %v", err)
	}
	got, ok := f.Get("nope")
	if !ok || got.AsI32() != 1 {
		t.Fatalf("Get(nope) = %v,%v want 1,true", got, ok)
	}
}

func TestDefineDuplicateNameErrors(t *testing.T) {
	f := newFrame(DefaultCapacity)
	if err := f.Define("x", value.I32(1), false); err != nil {
		t.Fatal(err)
	}
	if err := f.Define("x", value.I32(2), false); err == nil {
		t.Fatal("expected NameError re-defining an already-bound local name")
	}
}

func TestHashIndexBeyondManyBindings(t *testing.T) {
	f := newFrame(DefaultCapacity)
	for i := 0; i < 100; i++ {
		name := string(rune('a' + (i % 26)))
		name += string(rune('0' + (i / 26)))
		f.Define(name, value.I32(int32(i)), false)
	}
	got, ok := f.Get("a0")
	if !ok || got.AsI32() != 0 {
		t.Fatalf("Get(a0) = %v,%v want 0,true", got, ok)
	}
}

func TestPoolAcquireReleaseReuse(t *testing.T) {
	p := NewPool(2)
	f1 := p.Acquire()
	f1.Define("x", value.I32(1), false)
	p.Release(f1)

	f2 := p.Acquire()
	if f2.Len() != 0 {
		t.Fatalf("reused frame should be reset, got Len=%d", f2.Len())
	}
	stats := p.Stats()
	if stats.Acquired != 2 || stats.Released != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestPoolOverflowsBeyondCapacity(t *testing.T) {
	p := NewPool(1)
	f1 := p.Acquire()
	f2 := p.Acquire() // pool exhausted, should overflow-allocate
	if f1 == nil || f2 == nil {
		t.Fatal("expected both acquires to succeed")
	}
	if p.Stats().Overflowed != 1 {
		t.Fatalf("expected 1 overflow, got %d", p.Stats().Overflowed)
	}
}
