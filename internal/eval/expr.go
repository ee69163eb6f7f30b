package eval

import (
	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

func (e *Evaluator) evalExpr(n ast.Node, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	switch x := n.(type) {
	case *ast.NullLit:
		return value.Null(), nil
	case *ast.BoolLit:
		return value.Bool(x.Value), nil
	case *ast.IntLit:
		if x.Is32 {
			return value.I32(int32(x.Value)), nil
		}
		return value.I64(x.Value), nil
	case *ast.FloatLit:
		return value.F64(x.Value), nil
	case *ast.StringLit:
		return value.NewString(x.Value), nil
	case *ast.RuneLit:
		return value.Rune(x.Value), nil

	case *ast.Identifier:
		v, ok := frame.Get(x.Name)
		if !ok {
			return value.Value{}, herr.New(herr.NameError, "undefined name %q", x.Name).WithFrames(ctx.StackTrace())
		}
		return v, nil

	case *ast.ArrayLit:
		elems := make([]value.Value, 0, len(x.Elements))
		for _, el := range x.Elements {
			v, err := e.evalExpr(el, frame, ctx)
			if err != nil || ctx.Throwing {
				return value.Value{}, err
			}
			elems = append(elems, v)
		}
		return value.NewArray(elems), nil

	case *ast.ObjectLit:
		obj := value.NewObject()
		o := obj.Heap.(*value.ObjectObj)
		for i, key := range x.Keys {
			v, err := e.evalExpr(x.Values[i], frame, ctx)
			if err != nil || ctx.Throwing {
				return value.Value{}, err
			}
			o.Set(key, v)
		}
		return obj, nil

	case *ast.FunctionExpr:
		return value.NewFunctionFull(x.Name, x.Params, x.ParamTypes, x.ByRef, x.RestParam, toNodes(x.Defaults), x.Body, x.ReturnType, x.Async, frame), nil

	case *ast.BinaryExpr:
		return e.evalBinary(x, frame, ctx)

	case *ast.UnaryExpr:
		return e.evalUnary(x, frame, ctx)

	case *ast.AssignExpr:
		return e.evalAssign(x, frame, ctx)

	case *ast.CallExpr:
		return e.evalCall(x, frame, ctx)

	case *ast.IndexExpr:
		return e.evalIndex(x, frame, ctx)

	case *ast.MemberExpr:
		return e.evalMember(x, frame, ctx)

	case *ast.NullCoalesceExpr:
		v, err := e.evalExpr(x.Left, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		if !v.IsNull() {
			return v, nil
		}
		return e.evalExpr(x.Right, frame, ctx)

	case *ast.AwaitExpr:
		return e.evalAwait(x, frame, ctx)

	default:
		return value.Value{}, herr.New(herr.TypeError, "unsupported expression node %q", n.NodeKind()).WithFrames(ctx.StackTrace())
	}
}

func toNodes(defaults []ast.Node) []value.Node {
	if defaults == nil {
		return nil
	}
	out := make([]value.Node, len(defaults))
	for i, d := range defaults {
		if d != nil {
			out[i] = d
		}
	}
	return out
}

func (e *Evaluator) evalArgs(args []ast.Node, frame *environment.Frame, ctx *execctx.Context) ([]value.Value, error) {
	out := make([]value.Value, 0, len(args))
	for _, a := range args {
		v, err := e.evalExpr(a, frame, ctx)
		if err != nil || ctx.Throwing {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Evaluator) evalBinary(x *ast.BinaryExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	left, err := e.evalExpr(x.Left, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	// short-circuit logical operators never evaluate the right side
	// unless needed.
	if x.Op == "&&" {
		if !left.IsTruthy() {
			return left, nil
		}
		return e.evalExpr(x.Right, frame, ctx)
	}
	if x.Op == "||" {
		if left.IsTruthy() {
			return left, nil
		}
		return e.evalExpr(x.Right, frame, ctx)
	}

	right, err := e.evalExpr(x.Right, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}
	return applyBinaryOp(x.Op, left, right, ctx)
}

func applyBinaryOp(op string, left, right value.Value, ctx *execctx.Context) (value.Value, error) {
	var v value.Value
	var err error
	switch op {
	case "+":
		v, err = value.Add(left, right)
	case "-":
		v, err = value.Sub(left, right)
	case "*":
		v, err = value.Mul(left, right)
	case "/":
		v, err = value.Div(left, right)
	case "<<":
		v, err = value.Shl(left, right)
	case ">>":
		v, err = value.Shr(left, right)
	case "&":
		v, err = value.BitAnd(left, right)
	case "|":
		v, err = value.BitOr(left, right)
	case "^":
		v, err = value.BitXor(left, right)
	case "==":
		return value.Bool(value.Equal(left, right)), nil
	case "!=":
		return value.Bool(!value.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return compareOp(op, left, right)
	default:
		return value.Value{}, herr.New(herr.TypeError, "unknown operator %q", op)
	}
	if err != nil {
		if he, ok := err.(*herr.Error); ok {
			return value.Value{}, he.WithFrames(ctx.StackTrace())
		}
		return value.Value{}, err
	}
	return v, nil
}

func compareOp(op string, left, right value.Value) (value.Value, error) {
	var cmp int
	switch {
	case left.Tag == value.TagHeap:
		ls, lok := left.Heap.(*value.StringObj)
		rs, rok := right.Heap.(*value.StringObj)
		if !lok || !rok {
			return value.Value{}, herr.New(herr.TypeError, "cannot compare %s and %s", left.TypeName(), right.TypeName())
		}
		switch {
		case ls.Bytes() < rs.Bytes():
			cmp = -1
		case ls.Bytes() > rs.Bytes():
			cmp = 1
		}
	default:
		a, b := numeric(left), numeric(right)
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}
	switch op {
	case "<":
		return value.Bool(cmp < 0), nil
	case "<=":
		return value.Bool(cmp <= 0), nil
	case ">":
		return value.Bool(cmp > 0), nil
	default:
		return value.Bool(cmp >= 0), nil
	}
}

func numeric(v value.Value) float64 {
	return value.AsFloat64(v)
}

func (e *Evaluator) evalUnary(x *ast.UnaryExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	switch x.Op {
	case "!":
		v, err := e.evalExpr(x.Operand, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		return value.Bool(!v.IsTruthy()), nil
	case "-":
		v, err := e.evalExpr(x.Operand, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		return value.Neg(v)
	case "++", "--":
		return e.evalIncDec(x, frame, ctx)
	default:
		return e.evalExpr(x.Operand, frame, ctx)
	}
}

func (e *Evaluator) evalIncDec(x *ast.UnaryExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	ident, ok := x.Operand.(*ast.Identifier)
	if !ok {
		return value.Value{}, herr.New(herr.TypeError, "invalid increment/decrement target")
	}
	cur, ok := frame.Get(ident.Name)
	if !ok {
		return value.Value{}, herr.New(herr.NameError, "undefined name %q", ident.Name)
	}
	delta := value.I32(1)
	var next value.Value
	var err error
	if x.Op == "++" {
		next, err = value.Add(cur, delta)
	} else {
		next, err = value.Sub(cur, delta)
	}
	if err != nil {
		return value.Value{}, err
	}
	if err := frame.Set(ident.Name, next); err != nil {
		return value.Value{}, err
	}
	if x.Prefix {
		return next, nil
	}
	return cur, nil
}

func (e *Evaluator) evalAssign(x *ast.AssignExpr, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	v, err := e.evalExpr(x.Value, frame, ctx)
	if err != nil || ctx.Throwing {
		return value.Value{}, err
	}

	if x.Op != "=" {
		ident, ok := x.Target.(*ast.Identifier)
		if !ok {
			return value.Value{}, herr.New(herr.TypeError, "invalid compound-assignment target")
		}
		cur, ok := frame.Get(ident.Name)
		if !ok {
			return value.Value{}, herr.New(herr.NameError, "undefined name %q", ident.Name)
		}
		op := x.Op[:len(x.Op)-1]
		v, err = applyBinaryOp(op, cur, v, ctx)
		if err != nil {
			return value.Value{}, err
		}
	}

	switch t := x.Target.(type) {
	case *ast.Identifier:
		if err := frame.Set(t.Name, v); err != nil {
			return value.Value{}, err
		}
		return v, nil
	case *ast.IndexExpr:
		return e.assignIndex(t, v, frame, ctx)
	case *ast.MemberExpr:
		return e.assignMember(t, v, frame, ctx)
	default:
		return value.Value{}, herr.New(herr.TypeError, "invalid assignment target")
	}
}
