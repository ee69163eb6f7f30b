package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hemlang/hemlock/internal/value"
	"github.com/hemlang/hemlock/internal/workerpool"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	pool := workerpool.New(workerpool.Config{MinWorkers: 2, MaxWorkers: 2}, func(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error) {
		return value.Add(args[0], args[1])
	})
	t.Cleanup(pool.Shutdown)
	return &Manager{Pool: pool}
}

func asyncFn(name string, params []string) value.Value {
	return value.NewFunctionFull(name, params, nil, nil, "", nil, nil, "", true, nil)
}

func TestSpawnAndJoin(t *testing.T) {
	m := newManager(t)
	fn := asyncFn("add", []string{"a", "b"})
	taskVal, err := m.Spawn(context.Background(), fn, []value.Value{value.I32(2), value.I32(3)})
	if err != nil {
		t.Fatal(err)
	}
	to := taskVal.Heap.(*TaskObj)
	v, err := to.Join()
	if err != nil {
		t.Fatal(err)
	}
	if v.AsI32() != 5 {
		t.Fatalf("got %d want 5", v.AsI32())
	}
	if to.DebugInfo().State != "COMPLETED" {
		t.Fatalf("state = %s, want COMPLETED", to.DebugInfo().State)
	}
}

func TestSpawnRejectsNonAsyncFunction(t *testing.T) {
	m := newManager(t)
	fn := value.NewFunction("add", []string{"a", "b"}, nil, nil, nil)
	_, err := m.Spawn(context.Background(), fn, []value.Value{value.I32(2), value.I32(3)})
	if err == nil {
		t.Fatal("expected TypeError spawning a non-async function")
	}
}

func TestJoinFailsWhenAlreadyJoined(t *testing.T) {
	m := newManager(t)
	fn := asyncFn("add", []string{"a", "b"})
	taskVal, err := m.Spawn(context.Background(), fn, []value.Value{value.I32(2), value.I32(3)})
	if err != nil {
		t.Fatal(err)
	}
	to := taskVal.Heap.(*TaskObj)
	if _, err := to.Join(); err != nil {
		t.Fatal(err)
	}
	if _, err := to.Join(); err == nil {
		t.Fatal("expected TaskError joining a task a second time")
	}
}

func TestJoinFailsWhenDetached(t *testing.T) {
	to := &TaskObj{Header: value.NewHeader(), state: Completed}
	to.cond = sync.NewCond(&to.mu)
	to.Detach()
	if _, err := to.Join(); err == nil {
		t.Fatal("expected TaskError joining a detached task")
	}
}

func TestJoinContextTimeout(t *testing.T) {
	to := &TaskObj{Header: value.NewHeader(), state: Ready}
	to.cond = sync.NewCond(&to.mu)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := to.JoinContext(ctx)
	if err == nil {
		t.Fatal("expected context deadline error since task never completes")
	}
}

func TestDeepCopyArgArraysAndObjects(t *testing.T) {
	arr := value.NewArray([]value.Value{value.I32(1), value.I32(2)})
	copied := DeepCopyArg(arr)
	copiedArr := copied.Heap.(*value.ArrayObj)
	origArr := arr.Heap.(*value.ArrayObj)
	if &copiedArr.Elems[0] == &origArr.Elems[0] {
		t.Fatal("expected deep copy to allocate a new backing array")
	}
	if copiedArr.Elems[0].AsI32() != 1 {
		t.Fatalf("copied element = %d want 1", copiedArr.Elems[0].AsI32())
	}
}

func TestDeepCopySharesFunctionsByReference(t *testing.T) {
	fn := value.NewFunction("f", nil, nil, nil, nil)
	copied := DeepCopyArg(fn)
	if copied.Heap != fn.Heap {
		t.Fatal("expected function to be shared by reference, not copied")
	}
}
