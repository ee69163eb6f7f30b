// Package eval implements Hemlock's tree-walking evaluator: statement
// and expression evaluation, call semantics, method dispatch, operator
// fast paths, and index/property access over internal/ast trees.
package eval

import (
	"context"

	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

// Spawner is implemented by internal/task so the evaluator can spawn
// async calls without importing internal/task directly (which would
// import internal/eval to run a task body, creating a cycle). ctx is the
// spawning call's current span context, so the task's span nests under it.
type Spawner interface {
	Spawn(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error)
}

// Evaluator walks an AST against a chain of environment Frames.
type Evaluator struct {
	Pool    *environment.Pool
	Spawner Spawner

	// Globals are defined as const bindings in every module's root frame
	// before its statements run (e.g. the CLI's --argv values under "argv").
	Globals map[string]value.Value
}

// New creates an Evaluator backed by the given frame pool.
func New(pool *environment.Pool) *Evaluator {
	return &Evaluator{Pool: pool}
}

// EvalModule runs every top-level statement of m against a fresh root
// frame, returning the last expression statement's value or null.
func (e *Evaluator) EvalModule(m *ast.Module, ctx *execctx.Context) (value.Value, error) {
	root := environment.NewRoot()
	for name, v := range e.Globals {
		root.Define(name, v, true)
	}
	var last value.Value
	for _, stmt := range m.Statements {
		v, err := e.evalStmt(stmt, root, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if ctx.Throwing {
			return value.Value{}, herr.New(herr.TaskError, "uncaught exception: %s", value.Stringify(ctx.Exception)).WithFrames(ctx.StackTrace())
		}
		last = v
	}
	return last, nil
}
