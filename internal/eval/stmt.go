package eval

import (
	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

func (e *Evaluator) evalStmt(n ast.Node, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	switch s := n.(type) {
	case *ast.ExprStmt:
		return e.evalExpr(s.Expr, frame, ctx)

	case *ast.VarDecl:
		v, err := e.evalExpr(s.Value, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		if err := frame.Define(s.Name, v, s.IsConst); err != nil {
			return value.Value{}, err.(*herr.Error).WithFrames(ctx.StackTrace())
		}
		return value.Null(), nil

	case *ast.Block:
		child := environment.NewChild(frame)
		var last value.Value
		for _, stmt := range s.Statements {
			v, err := e.evalStmt(stmt, child, ctx)
			if err != nil {
				return value.Value{}, err
			}
			last = v
			if ctx.Unwinding() {
				break
			}
		}
		return last, nil

	case *ast.IfStmt:
		cond, err := e.evalExpr(s.Cond, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		if cond.IsTruthy() {
			return e.evalStmt(s.Then, frame, ctx)
		}
		if s.Else != nil {
			return e.evalStmt(s.Else, frame, ctx)
		}
		return value.Null(), nil

	case *ast.WhileStmt:
		for {
			cond, err := e.evalExpr(s.Cond, frame, ctx)
			if err != nil || ctx.Throwing {
				return value.Value{}, err
			}
			if !cond.IsTruthy() {
				break
			}
			if _, err := e.evalStmt(s.Body, frame, ctx); err != nil {
				return value.Value{}, err
			}
			if ctx.Breaking {
				ctx.ClearBreak()
				break
			}
			if ctx.Continuing {
				ctx.ClearContinue()
				continue
			}
			if ctx.Returning || ctx.Throwing {
				return value.Value{}, nil
			}
		}
		return value.Null(), nil

	case *ast.ForStmt:
		loopFrame := environment.NewChild(frame)
		if s.Init != nil {
			if _, err := e.evalStmt(s.Init, loopFrame, ctx); err != nil {
				return value.Value{}, err
			}
		}
		for {
			if s.Cond != nil {
				cond, err := e.evalExpr(s.Cond, loopFrame, ctx)
				if err != nil || ctx.Throwing {
					return value.Value{}, err
				}
				if !cond.IsTruthy() {
					break
				}
			}
			if _, err := e.evalStmt(s.Body, loopFrame, ctx); err != nil {
				return value.Value{}, err
			}
			if ctx.Breaking {
				ctx.ClearBreak()
				break
			}
			if ctx.Continuing {
				ctx.ClearContinue()
			} else if ctx.Returning || ctx.Throwing {
				return value.Value{}, nil
			}
			if s.Post != nil {
				if _, err := e.evalExpr(s.Post, loopFrame, ctx); err != nil {
					return value.Value{}, err
				}
			}
		}
		return value.Null(), nil

	case *ast.ReturnStmt:
		if s.Value == nil {
			ctx.Returning = true
			ctx.ReturnValue = value.Null()
			return value.Value{}, nil
		}
		v, err := e.evalExpr(s.Value, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		ctx.Returning = true
		ctx.ReturnValue = v
		return value.Value{}, nil

	case *ast.BreakStmt:
		ctx.Breaking = true
		return value.Value{}, nil

	case *ast.ContinueStmt:
		ctx.Continuing = true
		return value.Value{}, nil

	case *ast.ThrowStmt:
		v, err := e.evalExpr(s.Value, frame, ctx)
		if err != nil {
			return value.Value{}, err
		}
		ctx.Throw(v)
		return value.Value{}, nil

	case *ast.DeferStmt:
		call, ok := s.Call.(*ast.CallExpr)
		if !ok {
			return value.Value{}, nil
		}
		fn, err := e.evalExpr(call.Callee, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		args, err := e.evalArgs(call.Args, frame, ctx)
		if err != nil || ctx.Throwing {
			return value.Value{}, err
		}
		ctx.Defer(fn, args)
		return value.Value{}, nil

	case *ast.TryStmt:
		return e.evalTry(s, frame, ctx)

	default:
		return value.Value{}, herr.New(herr.TypeError, "unsupported statement node %q", n.NodeKind()).WithFrames(ctx.StackTrace())
	}
}

func (e *Evaluator) evalTry(s *ast.TryStmt, frame *environment.Frame, ctx *execctx.Context) (value.Value, error) {
	v, err := e.evalStmt(s.Try, frame, ctx)
	if err != nil {
		he, ok := err.(*herr.Error)
		if !ok || s.CatchBody == nil {
			return value.Value{}, err
		}
		ctx.Throw(value.NewString(he.Error()))
	}
	if ctx.Throwing && s.CatchBody != nil {
		exc := ctx.Exception
		ctx.ClearThrow()
		catchFrame := environment.NewChild(frame)
		if s.CatchName != "" {
			catchFrame.Define(s.CatchName, exc, false)
		}
		v, err = e.evalStmt(s.CatchBody, catchFrame, ctx)
		if err != nil {
			return value.Value{}, err
		}
	}
	if s.FinallyBody != nil {
		savedReturning, savedReturnValue := ctx.Returning, ctx.ReturnValue
		savedThrowing, savedExc := ctx.Throwing, ctx.Exception
		savedBreaking, savedContinuing := ctx.Breaking, ctx.Continuing
		ctx.Returning, ctx.Throwing, ctx.Breaking, ctx.Continuing = false, false, false, false

		_, ferr := e.evalStmt(s.FinallyBody, environment.NewChild(frame), ctx)
		if ferr != nil {
			return value.Value{}, ferr
		}
		if !ctx.Unwinding() {
			ctx.Returning, ctx.ReturnValue = savedReturning, savedReturnValue
			ctx.Throwing, ctx.Exception = savedThrowing, savedExc
			ctx.Breaking, ctx.Continuing = savedBreaking, savedContinuing
		}
	}
	return v, nil
}
