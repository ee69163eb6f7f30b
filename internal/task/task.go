// Package task implements Hemlock's Task state machine: spawn/join/detach,
// the READY -> RUNNING -> COMPLETED lifecycle, and the mandatory deep
// copy of arguments at spawn time (arrays/objects recursed; functions,
// channels, files, sockets, and tasks shared by reference).
package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/logging"
	"github.com/hemlang/hemlock/internal/metrics"
	"github.com/hemlang/hemlock/internal/observability"
	"github.com/hemlang/hemlock/internal/value"
	"github.com/hemlang/hemlock/internal/workerpool"
)

// State is one of the three task lifecycle states.
type State int

const (
	Ready State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	}
	return "UNKNOWN"
}

// AuditSink receives task lifecycle transitions for optional durable
// logging (internal/taskaudit implements this against Postgres). Spawn
// works identically whether or not a sink is configured.
type AuditSink interface {
	RecordTransition(taskID uuid.UUID, state State)
}

// TaskObj is the heap-allocated task handle stored in a value.Value,
// satisfying value.HeapObject so tasks are first-class, reference-
// counted, passable-by-reference values like any other heap variant.
type TaskObj struct {
	value.Header
	ID    uuid.UUID
	mu    sync.Mutex
	cond  *sync.Cond
	state State
	blockedHint bool
	result value.Value
	err    error
	joined bool
	detached bool

	audit   AuditSink
	spanCtx context.Context
}

func (t *TaskObj) Kind() string { return "task" }

// Manager spawns tasks onto a workerpool.Pool and runs their bodies via
// a RunFunc supplied by the embedding evaluator (avoiding a
// task<->eval import cycle).
type Manager struct {
	Pool  *workerpool.Pool
	Run   workerpool.RunFunc
	Audit AuditSink
}

// Spawn implements eval.Spawner: it deep-copies args per the spawn
// contract, creates a TaskObj in READY state, submits it to the worker
// pool, and returns a value.Value wrapping the task handle immediately
// (the caller does not block).
func (m *Manager) Spawn(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error) {
	fnObj, ok := fn.Heap.(*value.FunctionObj)
	if !ok {
		return value.Value{}, herr.New(herr.TypeError, "%s is not callable", fn.TypeName())
	}
	if !fnObj.IsAsync {
		return value.Value{}, herr.New(herr.TypeError, "spawn requires an async function, %q is not async", fnObj.Name)
	}

	copied := make([]value.Value, len(args))
	for i, a := range args {
		copied[i] = DeepCopyArg(a)
	}

	t := &TaskObj{Header: value.NewHeader(), ID: uuid.New(), state: Ready, audit: m.Audit}
	t.cond = sync.NewCond(&t.mu)
	if m.Audit != nil {
		m.Audit.RecordTransition(t.ID, Ready)
	}

	if mt := metrics.Global(); mt != nil {
		mt.IncTasksSpawned()
	}
	logging.Op().Debug("task spawned", "task_id", t.ID.String(), "function", fnObj.Name)

	if ctx == nil {
		ctx = context.Background()
	}
	spanCtx, span := observability.StartTaskSpan(ctx, fnObj.Name,
		observability.AttrTaskID.String(t.ID.String()),
		observability.AttrFunctionName.String(fnObj.Name))
	t.spanCtx = spanCtx

	go func() {
		defer span.End()

		t.mu.Lock()
		t.state = Running
		t.mu.Unlock()
		if m.Audit != nil {
			m.Audit.RecordTransition(t.ID, Running)
		}

		result := <-m.Pool.Submit(fn, copied)

		t.mu.Lock()
		t.result = result.Value
		t.err = result.Err
		t.state = Completed
		t.cond.Broadcast()
		t.mu.Unlock()
		if m.Audit != nil {
			m.Audit.RecordTransition(t.ID, Completed)
		}

		status := "ok"
		if result.Err != nil {
			status = "error"
			observability.SetSpanError(span, result.Err)
		} else {
			observability.SetSpanOK(span)
		}
		if mt := metrics.Global(); mt != nil {
			mt.IncTasksCompleted(status)
		}
	}()

	return value.Value{Tag: value.TagHeap, Heap: t}, nil
}

// Join blocks the calling task/goroutine until t completes, then
// returns its result or error. A task can be joined once: a second Join,
// or a Join on a detached task, fails with TaskError.
func (t *TaskObj) Join() (value.Value, error) {
	start := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detached {
		return value.Value{}, herr.New(herr.TaskError, "cannot join a detached task")
	}
	if t.joined {
		return value.Value{}, herr.New(herr.TaskError, "task already joined")
	}
	t.blockedHint = true
	for t.state != Completed {
		t.cond.Wait()
	}
	t.blockedHint = false
	t.joined = true
	if m := metrics.Global(); m != nil {
		m.ObserveTaskJoinWaitSeconds(time.Since(start).Seconds())
	}
	return t.result, t.err
}

// JoinContext is Join with cancellation support, used by a channel
// select/poll loop that must not block forever on a task that will
// never complete.
func (t *TaskObj) JoinContext(ctx context.Context) (value.Value, error) {
	done := make(chan struct{})
	var v value.Value
	var err error
	go func() {
		v, err = t.Join()
		close(done)
	}()
	select {
	case <-done:
		return v, err
	case <-ctx.Done():
		return value.Value{}, ctx.Err()
	}
}

// Detach marks the task as fire-and-forget: any later Join fails with
// TaskError. The result is still stored on the handle when the task
// completes.
func (t *TaskObj) Detach() {
	t.mu.Lock()
	t.detached = true
	t.mu.Unlock()
}

// DebugInfo reports the state machine snapshot used by task_debug_info.
type DebugInfo struct {
	ID      string
	State   string
	Blocked bool
	Joined  bool
}

func (t *TaskObj) DebugInfo() DebugInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return DebugInfo{ID: t.ID.String(), State: t.state.String(), Blocked: t.blockedHint, Joined: t.joined}
}

// DeepCopyArg implements the spawn-time argument copy contract: arrays
// and objects are recursed into fresh heap allocations; strings/buffers
// are cloned; functions, channels, tasks, files, and sockets are shared
// by reference (retained, not copied), since they represent a single
// logical resource that must stay shared across the spawning and
// spawned task.
func DeepCopyArg(v value.Value) value.Value {
	if v.Tag != value.TagHeap || v.Heap == nil {
		return v
	}
	switch h := v.Heap.(type) {
	case *value.StringObj:
		return value.NewString(h.Bytes())
	case *value.BufferObj:
		cp := make([]byte, len(h.Data))
		copy(cp, h.Data)
		return value.NewBuffer(cp)
	case *value.ArrayObj:
		elems := make([]value.Value, len(h.Elems))
		for i, e := range h.Elems {
			elems[i] = DeepCopyArg(e)
		}
		return value.NewArray(elems)
	case *value.ObjectObj:
		out := value.NewObject()
		dst := out.Heap.(*value.ObjectObj)
		for i, k := range h.Keys {
			dst.Set(k, DeepCopyArg(h.Values[i]))
		}
		return out
	case *value.FunctionObj, *TaskObj:
		return v.Retain()
	default:
		// channels, files, sockets: shared by reference
		return v.Retain()
	}
}
