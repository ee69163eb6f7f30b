package eval

import (
	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

func (e *Evaluator) evalIndex(x *ast.IndexExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	target, err := e.evalExpr(x.Target, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	idx, err := e.evalExpr(x.Index, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	return indexGet(target, idx, ctx)
}

func indexGet(target, idx value.Value, ctx *execctx.Context) (value.Value, error) {
	if target.Tag != value.TagHeap {
		return value.Value{}, herr.New(herr.TypeError, "%s is not indexable", target.TypeName()).WithFrames(ctx.StackTrace())
	}
	switch h := target.Heap.(type) {
	case *value.ArrayObj:
		i, err := asInt(idx)
		if err != nil {
			return value.Value{}, err
		}
		if i < 0 {
			return value.Value{}, herr.New(herr.IndexError, "negative array index %d is not accepted", i).WithFrames(ctx.StackTrace())
		}
		if i >= len(h.Elems) {
			return value.Value{}, herr.New(herr.IndexError, "array index %d out of range (len %d)", i, len(h.Elems)).WithFrames(ctx.StackTrace())
		}
		return h.Elems[i], nil
	case *value.StringObj:
		i, err := asInt(idx)
		if err != nil {
			return value.Value{}, err
		}
		r, ok := h.RuneAt(i)
		if !ok {
			return value.Value{}, herr.New(herr.IndexError, "string index %d out of range (len %d)", i, h.RuneLen()).WithFrames(ctx.StackTrace())
		}
		return value.Rune(r), nil
	case *value.ObjectObj:
		key := value.Stringify(idx)
		v, ok := h.Get(key)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	}
	return value.Value{}, herr.New(herr.TypeError, "%s is not indexable", target.TypeName()).WithFrames(ctx.StackTrace())
}

func asInt(v value.Value) (int, error) {
	switch v.Tag {
	case value.TagI8, value.TagI16, value.TagI32, value.TagI64:
		return int(value.AsFloat64(v)), nil
	case value.TagU8, value.TagU16, value.TagU32, value.TagU64:
		return int(value.AsFloat64(v)), nil
	}
	return 0, herr.New(herr.TypeError, "index must be an integer, got %s", v.TypeName())
}

func (e *Evaluator) assignIndex(x *ast.IndexExpr, v value.Value, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	target, err := e.evalExpr(x.Target, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	idx, err := e.evalExpr(x.Index, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	if target.Tag != value.TagHeap {
		return value.Value{}, herr.New(herr.TypeError, "%s is not indexable", target.TypeName())
	}
	switch h := target.Heap.(type) {
	case *value.ArrayObj:
		i, err := asInt(idx)
		if err != nil {
			return value.Value{}, err
		}
		if i < 0 {
			return value.Value{}, herr.New(herr.IndexError, "negative array index %d is not accepted", i)
		}
		if i >= len(h.Elems) {
			return value.Value{}, herr.New(herr.IndexError, "array index %d out of range (len %d)", i, len(h.Elems))
		}
		if err := h.CheckElem(v); err != nil {
			return value.Value{}, err
		}
		h.Elems[i].Release()
		h.Elems[i] = v
		return v, nil
	case *value.ObjectObj:
		h.Set(value.Stringify(idx), v)
		return v, nil
	}
	return value.Value{}, herr.New(herr.TypeError, "%s is not indexable", target.TypeName())
}

func (e *Evaluator) evalMember(x *ast.MemberExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	target, err := e.evalExpr(x.Target, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	if x.Optional && target.IsNull() {
		return value.Null(), nil
	}
	if target.Tag != value.TagHeap {
		return value.Value{}, herr.New(herr.FieldError, "%s has no field %q", target.TypeName(), x.Property).WithFrames(ctx.StackTrace())
	}
	obj, ok := target.Heap.(*value.ObjectObj)
	if !ok {
		return value.Value{}, herr.New(herr.FieldError, "%s has no field %q", target.TypeName(), x.Property).WithFrames(ctx.StackTrace())
	}
	v, ok := obj.Get(x.Property)
	if !ok {
		return value.Value{}, herr.New(herr.FieldError, "object has no field %q", x.Property).WithFrames(ctx.StackTrace())
	}
	return v, nil
}

func (e *Evaluator) assignMember(x *ast.MemberExpr, v value.Value, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	target, err := e.evalExpr(x.Target, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	obj, ok := target.Heap.(*value.ObjectObj)
	if !ok {
		return value.Value{}, herr.New(herr.FieldError, "%s has no field %q", target.TypeName(), x.Property)
	}
	obj.Set(x.Property, v)
	return v, nil
}
