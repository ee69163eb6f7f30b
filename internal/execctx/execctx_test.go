package execctx

import (
	"testing"

	"github.com/hemlang/hemlock/internal/value"
)

func TestPushCallTracksDepth(t *testing.T) {
	ctx := New(10)
	if err := ctx.PushCall("a", 1); err != nil {
		t.Fatal(err)
	}
	if ctx.CallDepth() != 1 {
		t.Fatalf("expected depth 1, got %d", ctx.CallDepth())
	}
	if err := ctx.PushCall("b", 2); err != nil {
		t.Fatal(err)
	}
	if ctx.CallDepth() != 2 {
		t.Fatalf("expected depth 2, got %d", ctx.CallDepth())
	}
	ctx.PopCall()
	if ctx.CallDepth() != 1 {
		t.Fatalf("expected depth 1 after pop, got %d", ctx.CallDepth())
	}
}

func TestPushCallExceedsMaxRecursion(t *testing.T) {
	ctx := New(2)
	if err := ctx.PushCall("a", 0); err != nil {
		t.Fatal(err)
	}
	if err := ctx.PushCall("b", 0); err != nil {
		t.Fatal(err)
	}
	if err := ctx.PushCall("c", 0); err == nil {
		t.Fatal("expected RecursionError once MaxRecursion is exceeded")
	}
}

func TestDeferLIFOOrder(t *testing.T) {
	ctx := New(10)
	ctx.PushCall("f", 0)
	ctx.Defer(value.I32(1), nil)
	ctx.Defer(value.I32(2), nil)
	defers := ctx.PopCall()
	if len(defers) != 2 {
		t.Fatalf("expected 2 deferred calls, got %d", len(defers))
	}
	if defers[0].Fn.Bits != uint64(2) {
		t.Fatalf("expected LIFO order, first deferred should be the second one queued")
	}
}
