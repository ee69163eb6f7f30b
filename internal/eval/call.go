package eval

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/logging"
	"github.com/hemlang/hemlock/internal/metrics"
	"github.com/hemlang/hemlock/internal/observability"
	"github.com/hemlang/hemlock/internal/value"
)

func (e *Evaluator) evalCall(x *ast.CallExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	// Method-call shape: callee is a MemberExpr, dispatch to the
	// built-in method table for the target's heap kind, letting a
	// user-defined field of the same name shadow the built-in.
	if member, ok := x.Callee.(*ast.MemberExpr); ok {
		target, err := e.evalExpr(member.Target, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		if member.Optional && target.IsNull() {
			return value.Null(), nil
		}
		args, err := e.evalArgs(x.Args, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		if target.Tag == value.TagHeap {
			if obj, ok := target.Heap.(*value.ObjectObj); ok {
				if fieldFn, ok := obj.Get(member.Property); ok {
					if _, isFn := fieldFn.Heap.(*value.FunctionObj); ok && isFn {
						return e.callFunction(fieldFn, args, ctx, member.Property)
					}
				}
			}
		}
		return e.dispatchMethod(target, member.Property, args, ctx)
	}

	fn, err := e.evalExpr(x.Callee, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	args, err := e.evalArgs(x.Args, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}

	name := calleeName(x.Callee)

	if x.Async {
		if e.Spawner == nil {
			return value.Value{}, herr.New(herr.TaskError, "async calls unsupported: no task spawner configured")
		}
		return e.Spawner.Spawn(ctx.SpanCtx, fn, args)
	}

	return e.callFunction(fn, args, ctx, name)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func calleeName(n ast.Node) string {
	switch t := n.(type) {
	case *ast.Identifier:
		return t.Name
	case *ast.MemberExpr:
		return t.Property
	}
	return "<anonymous>"
}

// Call invokes fn(args...) with a fresh ExecutionContext, the entry point
// a workerpool.RunFunc uses to run a task body (internal/task calls back
// into the evaluator through this indirection to avoid a task<->eval
// import cycle).
func (e *Evaluator) Call(fn value.Value, args []value.Value, maxRecursion int, name string) (value.Value, error) {
	ctx := execctx.New(maxRecursion)
	v, err := e.callFunction(fn, args, ctx, name)
	if err == nil && ctx.Throwing {
		return value.Value{}, herr.New(herr.TaskError, "uncaught exception in task: %s", value.Stringify(ctx.Exception)).WithFrames(ctx.StackTrace())
	}
	return v, err
}

// callFunction implements the ordinary (synchronous) call contract:
// arity validation against required params, default-expression
// evaluation for missing trailing args, a fresh pooled call frame
// chained to the function's captured environment, recursion-depth
// tracking, and defer-stack unwinding on return.
func (e *Evaluator) callFunction(fn value.Value, args []value.Value, ctx *execctx.Context, name string) (value.Value, error) {
	fnObj, ok := fn.Heap.(*value.FunctionObj)
	if !ok {
		return value.Value{}, herr.New(herr.TypeError, "%s is not callable", fn.TypeName()).WithFrames(ctx.StackTrace())
	}

	if len(args) > len(fnObj.Params) {
		return value.Value{}, herr.New(herr.TypeError, "%s expects at most %d arguments, got %d", name, len(fnObj.Params), len(args)).WithFrames(ctx.StackTrace())
	}

	callFrame := e.Pool.Acquire()
	var captured *environment.Frame
	if fnObj.Captured != nil {
		captured, _ = fnObj.Captured.(*environment.Frame)
	}
	callFrame.Parent = captured

	if fnObj.BoundSelf != nil {
		if err := callFrame.Define("this", *fnObj.BoundSelf, true); err != nil {
			e.Pool.Release(callFrame)
			return value.Value{}, err
		}
	}

	for i, param := range fnObj.Params {
		var paramType string
		if i < len(fnObj.ParamTypes) {
			paramType = fnObj.ParamTypes[i]
		}
		if i < len(args) {
			arg, err := value.CoerceToType(args[i], paramType)
			if err != nil {
				e.Pool.Release(callFrame)
				return value.Value{}, herr.New(herr.TypeError, "%s: argument %q: %s", name, param, err.Error()).WithFrames(ctx.StackTrace())
			}
			if err := callFrame.Define(param, arg, false); err != nil {
				e.Pool.Release(callFrame)
				return value.Value{}, err
			}
			continue
		}
		if i < len(fnObj.Defaults) && fnObj.Defaults[i] != nil {
			defNode, ok := fnObj.Defaults[i].(ast.Node)
			if !ok {
				return value.Value{}, herr.New(herr.TypeError, "invalid default expression for parameter %q", param)
			}
			dv, err := e.evalExpr(defNode, callFrame, ctx)
			if err != nil {
				e.Pool.Release(callFrame)
				return value.Value{}, err
			}
			if err := callFrame.Define(param, dv, false); err != nil {
				e.Pool.Release(callFrame)
				return value.Value{}, err
			}
			continue
		}
		return value.Value{}, herr.New(herr.TypeError, "%s missing required argument %q", name, param).WithFrames(ctx.StackTrace())
	}

	depth := ctx.CallDepth()
	if err := ctx.PushCall(name, 0); err != nil {
		e.Pool.Release(callFrame)
		return value.Value{}, err
	}

	bodyNode, ok := fnObj.Body.(ast.Node)
	if !ok {
		ctx.PopCall()
		e.Pool.Release(callFrame)
		return value.Value{}, herr.New(herr.TypeError, "invalid function body")
	}

	parentSpanCtx := ctx.SpanCtx
	var span trace.Span
	spanCtx := parentSpanCtx
	if observability.Enabled() {
		spanCtx, span = observability.StartSpan(parentSpanCtx, name,
			observability.AttrFunctionName.String(name),
			observability.AttrRecursionDep.Int(depth))
	}
	ctx.SpanCtx = spanCtx

	start := time.Now()
	_, err := e.evalStmt(bodyNode, callFrame, ctx)
	elapsed := time.Since(start)

	ctx.SpanCtx = parentSpanCtx
	if span != nil {
		span.SetAttributes(observability.AttrDurationMs.Int64(elapsed.Milliseconds()))
		if err != nil || ctx.Throwing {
			observability.SetSpanError(span, herr.New(herr.TaskError, "call %s failed", name))
		} else {
			observability.SetSpanOK(span)
		}
		span.End()
	}

	if m := metrics.Global(); m != nil {
		m.ObserveEvalCallMs(float64(elapsed.Milliseconds()))
	}
	logging.DefaultTracer().Trace(logging.CallTrace{
		Function:   name,
		DurationMs: elapsed.Milliseconds(),
		Depth:      depth,
		Success:    err == nil && !ctx.Throwing,
		Error:      errString(err),
	})

	defers := ctx.PopCall()
	for i := len(defers) - 1; i >= 0; i-- {
		d := defers[i]
		if _, derr := e.callFunction(d.Fn, d.Args, ctx, "<deferred>"); derr != nil && err == nil {
			err = derr
		}
	}

	var result value.Value
	if ctx.Returning {
		result = ctx.ReturnValue
		ctx.ClearReturn()
	} else {
		result = value.Null()
	}

	e.Pool.Release(callFrame)

	if err == nil && !ctx.Throwing && fnObj.ReturnType != "" {
		if result.IsNull() {
			return value.Value{}, herr.New(herr.TypeError, "%s: must return %s, got null", name, fnObj.ReturnType).WithFrames(ctx.StackTrace())
		}
		result, err = value.CoerceToType(result, fnObj.ReturnType)
		if err != nil {
			return value.Value{}, herr.New(herr.TypeError, "%s: return value: %s", name, err.Error()).WithFrames(ctx.StackTrace())
		}
	}

	return result, err
}

// sendRecvCloser is satisfied by internal/channel's ChannelObj. Declared
// locally (rather than importing internal/channel) for the same
// decoupling reason as joinable below.
type sendRecvCloser interface {
	Send(value.Value) error
	Recv() (value.Value, bool)
	Close()
	Poll() bool
}

// detachable is satisfied by internal/task's TaskObj, alongside the
// joinable interface it also implements.
type detachable interface {
	Detach()
}

// dispatchMethod looks up a fixed built-in method by the target's heap
// kind: length/push/pop for arrays, length for strings, length for
// buffers, keys/has/delete/serialize for objects, send/recv/close/poll
// for channels, join/detach for tasks.
func (e *Evaluator) dispatchMethod(target value.Value, method string, args []value.Value, ctx *execctx.Context) (value.Value, error) {
	if target.Tag != value.TagHeap {
		return value.Value{}, herr.New(herr.TypeError, "%s has no method %q", target.TypeName(), method).WithFrames(ctx.StackTrace())
	}
	switch h := target.Heap.(type) {
	case *value.ArrayObj:
		switch method {
		case "length":
			return value.I32(int32(len(h.Elems))), nil
		case "push":
			for _, a := range args {
				if err := h.CheckElem(a); err != nil {
					return value.Value{}, err.(*herr.Error).WithFrames(ctx.StackTrace())
				}
			}
			h.Elems = append(h.Elems, args...)
			for _, a := range args {
				a.Retain()
			}
			return value.I32(int32(len(h.Elems))), nil
		case "pop":
			if len(h.Elems) == 0 {
				return value.Null(), nil
			}
			last := h.Elems[len(h.Elems)-1]
			h.Elems = h.Elems[:len(h.Elems)-1]
			return last, nil
		}
	case *value.StringObj:
		switch method {
		case "length":
			return value.I32(int32(h.RuneLen())), nil
		}
	case *value.BufferObj:
		switch method {
		case "length":
			return value.I32(int32(len(h.Data))), nil
		}
	case *value.ObjectObj:
		switch method {
		case "keys":
			elems := make([]value.Value, len(h.Keys))
			for i, k := range h.Keys {
				elems[i] = value.NewString(k)
			}
			return value.NewArray(elems), nil
		case "has":
			if len(args) != 1 {
				return value.Value{}, herr.New(herr.TypeError, "has expects 1 argument, got %d", len(args)).WithFrames(ctx.StackTrace())
			}
			_, ok := h.Get(value.Stringify(args[0]))
			return value.Bool(ok), nil
		case "delete":
			if len(args) != 1 {
				return value.Value{}, herr.New(herr.TypeError, "delete expects 1 argument, got %d", len(args)).WithFrames(ctx.StackTrace())
			}
			return value.Bool(h.Delete(value.Stringify(args[0]))), nil
		case "serialize":
			if value.Serializer == nil {
				return value.Value{}, herr.New(herr.SerializationError, "no serializer configured").WithFrames(ctx.StackTrace())
			}
			s, err := value.Serializer(target)
			if err != nil {
				return value.Value{}, err
			}
			return value.NewString(s), nil
		}
	case sendRecvCloser:
		switch method {
		case "send":
			if len(args) != 1 {
				return value.Value{}, herr.New(herr.TypeError, "send expects 1 argument, got %d", len(args)).WithFrames(ctx.StackTrace())
			}
			if err := h.Send(args[0]); err != nil {
				return value.Value{}, err
			}
			return value.Null(), nil
		case "recv":
			v, ok := h.Recv()
			if !ok {
				return value.Null(), nil
			}
			return v, nil
		case "close":
			h.Close()
			return value.Null(), nil
		case "poll":
			return value.Bool(h.Poll()), nil
		}
	case joinable:
		switch method {
		case "join":
			return h.Join()
		case "detach":
			if d, ok := h.(detachable); ok {
				d.Detach()
			}
			return value.Null(), nil
		}
	}
	return value.Value{}, herr.New(herr.TypeError, "%s has no method %q", target.TypeName(), method).WithFrames(ctx.StackTrace())
}

func (e *Evaluator) evalAwait(x *ast.AwaitExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	taskVal, err := e.evalExpr(x.Operand, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	joiner, ok := taskVal.Heap.(joinable)
	if !ok {
		return value.Value{}, herr.New(herr.TypeError, "await target is not a task").WithFrames(ctx.StackTrace())
	}
	return joiner.Join()
}

// joinable is satisfied by internal/task's TaskObj, kept as a local
// interface to avoid an eval<->task import cycle (task.Run calls back
// into eval to execute the task body).
type joinable interface {
	Join() (value.Value, error)
}
