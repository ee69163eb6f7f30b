package eval

import (
	"testing"

	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/value"
)

func newEval() *Evaluator {
	return New(environment.NewPool(8))
}

func TestArithmeticExpression(t *testing.T) {
	// 2 + 3 * 4
	expr := &ast.BinaryExpr{
		Op:   "+",
		Left: &ast.IntLit{Value: 2, Is32: true},
		Right: &ast.BinaryExpr{
			Op:    "*",
			Left:  &ast.IntLit{Value: 3, Is32: true},
			Right: &ast.IntLit{Value: 4, Is32: true},
		},
	}
	e := newEval()
	ctx := execctx.New(0)
	frame := environment.NewRoot()
	v, err := e.evalExpr(expr, frame, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.AsI32() != 14 {
		t.Fatalf("got %d want 14", v.AsI32())
	}
}

func TestFunctionCallWithDefaultArg(t *testing.T) {
	// function add(a, b = 10) { return a + b }
	fn := &ast.FunctionExpr{
		Name:     "add",
		Params:   []string{"a", "b"},
		Defaults: []ast.Node{nil, &ast.IntLit{Value: 10, Is32: true}},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Op:    "+",
				Left:  &ast.Identifier{Name: "a"},
				Right: &ast.Identifier{Name: "b"},
			}},
		}},
	}

	e := newEval()
	ctx := execctx.New(0)
	root := environment.NewRoot()
	fnVal, err := e.evalExpr(fn, root, ctx)
	if err != nil {
		t.Fatal(err)
	}

	result, err := e.callFunction(fnVal, []value.Value{value.I32(5)}, ctx, "add")
	if err != nil {
		t.Fatal(err)
	}
	if result.AsI32() != 15 {
		t.Fatalf("got %d want 15", result.AsI32())
	}
}

func TestRecursionDepthCeiling(t *testing.T) {
	// function f() { return f() }
	var fnExpr *ast.FunctionExpr
	fnExpr = &ast.FunctionExpr{
		Name:   "f",
		Params: nil,
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStmt{Value: &ast.CallExpr{Callee: &ast.Identifier{Name: "f"}}},
		}},
	}

	e := newEval()
	ctx := execctx.New(10)
	root := environment.NewRoot()
	fnVal, err := e.evalExpr(fnExpr, root, ctx)
	if err != nil {
		t.Fatal(err)
	}
	root.Define("f", fnVal, true)
	// rebind captured env so the recursive call resolves "f"
	fnObjRef := fnVal.Heap.(*value.FunctionObj)
	fnObjRef.Captured = root

	_, err = e.callFunction(fnVal, nil, ctx, "f")
	if err == nil {
		t.Fatal("expected RecursionError")
	}
	_ = fnExpr
}

func TestCallEntersWithFreshContext(t *testing.T) {
	fn := &ast.FunctionExpr{
		Name:   "double",
		Params: []string{"n"},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Op:    "*",
				Left:  &ast.Identifier{Name: "n"},
				Right: &ast.IntLit{Value: 2, Is32: true},
			}},
		}},
	}

	e := newEval()
	root := environment.NewRoot()
	fnVal, err := e.evalExpr(fn, root, execctx.New(0))
	if err != nil {
		t.Fatal(err)
	}

	result, err := e.Call(fnVal, []value.Value{value.I32(21)}, 100, "double")
	if err != nil {
		t.Fatal(err)
	}
	if result.AsI32() != 42 {
		t.Fatalf("got %d want 42", result.AsI32())
	}
}

func TestIndexOutOfRange(t *testing.T) {
	arr := value.NewArray([]value.Value{value.I32(1), value.I32(2)})
	ctx := execctx.New(0)
	_, err := indexGet(arr, value.I32(5), ctx)
	if err == nil {
		t.Fatal("expected IndexError")
	}
}

func TestTryCatchClearsException(t *testing.T) {
	tryStmt := &ast.TryStmt{
		Try: &ast.Block{Statements: []ast.Node{
			&ast.ThrowStmt{Value: &ast.StringLit{Value: "boom"}},
		}},
		CatchName: "e",
		CatchBody: &ast.Block{Statements: []ast.Node{
			&ast.ExprStmt{Expr: &ast.Identifier{Name: "e"}},
		}},
	}
	e := newEval()
	ctx := execctx.New(0)
	root := environment.NewRoot()
	_, err := e.evalStmt(tryStmt, root, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Throwing {
		t.Fatal("expected exception to be cleared by catch")
	}
}
