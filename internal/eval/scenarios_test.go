package eval

import (
	"context"
	"testing"

	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/task"
	"github.com/hemlang/hemlock/internal/value"
	"github.com/hemlang/hemlock/internal/workerpool"
)

// Equivalent to: let xs = [1,2,3]; let s = 0;
// for (let i=0; i<xs.length(); i=i+1) { s = s + xs[i]; } s
// (spec's for-in sugar expressed with the available C-style ForStmt,
// since this repo has no parser to produce for-in ASTs from source text).
func TestScenarioSumArrayOverForLoop(t *testing.T) {
	mod := &ast.Module{Statements: []ast.Node{
		&ast.VarDecl{Name: "xs", Value: &ast.ArrayLit{Elements: []ast.Node{
			&ast.IntLit{Value: 1, Is32: true},
			&ast.IntLit{Value: 2, Is32: true},
			&ast.IntLit{Value: 3, Is32: true},
		}}},
		&ast.VarDecl{Name: "s", Value: &ast.IntLit{Value: 0, Is32: true}},
		&ast.ForStmt{
			Init: &ast.VarDecl{Name: "i", Value: &ast.IntLit{Value: 0, Is32: true}},
			Cond: &ast.BinaryExpr{Op: "<", Left: &ast.Identifier{Name: "i"}, Right: &ast.CallExpr{
				Callee: &ast.MemberExpr{Target: &ast.Identifier{Name: "xs"}, Property: "length"},
			}},
			Post: &ast.AssignExpr{Op: "=", Target: &ast.Identifier{Name: "i"}, Value: &ast.BinaryExpr{
				Op: "+", Left: &ast.Identifier{Name: "i"}, Right: &ast.IntLit{Value: 1, Is32: true},
			}},
			Body: &ast.Block{Statements: []ast.Node{
				&ast.ExprStmt{Expr: &ast.AssignExpr{Op: "=", Target: &ast.Identifier{Name: "s"}, Value: &ast.BinaryExpr{
					Op:   "+",
					Left: &ast.Identifier{Name: "s"},
					Right: &ast.IndexExpr{
						Target: &ast.Identifier{Name: "xs"},
						Index:  &ast.Identifier{Name: "i"},
					},
				}}},
			}},
		},
		&ast.ExprStmt{Expr: &ast.Identifier{Name: "s"}},
	}}

	e := newEval()
	result, err := e.EvalModule(mod, execctx.New(0))
	if err != nil {
		t.Fatal(err)
	}
	if result.AsI32() != 6 {
		t.Fatalf("got %d want 6", result.AsI32())
	}
}

// Equivalent to: async fn f(x) { return x * 2; } let t = spawn(f, 21); await t
func TestScenarioSpawnAwait(t *testing.T) {
	e := newEval()

	var pool *workerpool.Pool
	runFunc := func(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error) {
		return e.Call(fn, args, 100, "f")
	}
	pool = workerpool.New(workerpool.Config{MinWorkers: 1, MaxWorkers: 1}, runFunc)
	defer pool.Shutdown()
	e.Spawner = &task.Manager{Pool: pool, Run: runFunc}

	fnExpr := &ast.FunctionExpr{
		Name:   "f",
		Params: []string{"x"},
		Async:  true,
		Body: &ast.Block{Statements: []ast.Node{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Op: "*", Left: &ast.Identifier{Name: "x"}, Right: &ast.IntLit{Value: 2, Is32: true},
			}},
		}},
	}
	fnVal, err := e.evalExpr(fnExpr, environment.NewRoot(), execctx.New(0))
	if err != nil {
		t.Fatal(err)
	}
	e.Globals = map[string]value.Value{"f": fnVal}

	mod := &ast.Module{Statements: []ast.Node{
		&ast.VarDecl{Name: "t", Value: &ast.CallExpr{
			Callee: &ast.Identifier{Name: "f"},
			Args:   []ast.Node{&ast.IntLit{Value: 21, Is32: true}},
			Async:  true,
		}},
		&ast.ExprStmt{Expr: &ast.AwaitExpr{Operand: &ast.Identifier{Name: "t"}}},
	}}

	result, err := e.EvalModule(mod, execctx.New(100))
	if err != nil {
		t.Fatal(err)
	}
	if result.AsI32() != 42 {
		t.Fatalf("got %d want 42", result.AsI32())
	}
}

// Equivalent to: fn f(n) { if (n <= 1) return 1; return n * f(n - 1); } f(5)
func TestScenarioFactorialRecursion(t *testing.T) {
	fnExpr := &ast.FunctionExpr{
		Name:   "f",
		Params: []string{"n"},
		Body: &ast.Block{Statements: []ast.Node{
			&ast.IfStmt{
				Cond: &ast.BinaryExpr{Op: "<=", Left: &ast.Identifier{Name: "n"}, Right: &ast.IntLit{Value: 1, Is32: true}},
				Then: &ast.ReturnStmt{Value: &ast.IntLit{Value: 1, Is32: true}},
			},
			&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Op:   "*",
				Left: &ast.Identifier{Name: "n"},
				Right: &ast.CallExpr{
					Callee: &ast.Identifier{Name: "f"},
					Args: []ast.Node{&ast.BinaryExpr{
						Op: "-", Left: &ast.Identifier{Name: "n"}, Right: &ast.IntLit{Value: 1, Is32: true},
					}},
				},
			}},
		}},
	}

	e := newEval()
	ctx := execctx.New(100)
	root := environment.NewRoot()
	fnVal, err := e.evalExpr(fnExpr, root, ctx)
	if err != nil {
		t.Fatal(err)
	}
	root.Define("f", fnVal, true)
	fnObjRef := fnVal.Heap.(*value.FunctionObj)
	fnObjRef.Captured = root

	result, err := e.callFunction(fnVal, []value.Value{value.I32(5)}, ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	if result.AsI32() != 120 {
		t.Fatalf("got %d want 120", result.AsI32())
	}
}

// Equivalent to: try { let a = [1,2]; print(a[5]); } catch (e) { "caught" }
func TestScenarioCaughtIndexError(t *testing.T) {
	tryStmt := &ast.TryStmt{
		Try: &ast.Block{Statements: []ast.Node{
			&ast.VarDecl{Name: "a", Value: &ast.ArrayLit{Elements: []ast.Node{
				&ast.IntLit{Value: 1, Is32: true},
				&ast.IntLit{Value: 2, Is32: true},
			}}},
			&ast.ExprStmt{Expr: &ast.IndexExpr{Target: &ast.Identifier{Name: "a"}, Index: &ast.IntLit{Value: 5, Is32: true}}},
		}},
		CatchName: "e",
		CatchBody: &ast.Block{Statements: []ast.Node{
			&ast.ExprStmt{Expr: &ast.StringLit{Value: "caught"}},
		}},
	}

	e := newEval()
	ctx := execctx.New(0)
	root := environment.NewRoot()
	result, err := e.evalStmt(tryStmt, root, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Throwing {
		t.Fatal("expected the catch clause to clear the exception")
	}
	sv, ok := result.Heap.(*value.StringObj)
	if !ok || sv.Bytes() != "caught" {
		t.Fatalf("got %v want %q", result, "caught")
	}
}
