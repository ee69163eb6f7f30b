// Package execctx implements the evaluator's per-call ExecutionContext:
// the control-flow flags (return/break/continue/throw), the call stack
// used to build stack traces, and the defer stack unwound on scope exit.
package execctx

import (
	"context"

	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/value"
)

// DeferredCall is one deferred call site queued by a `defer` statement,
// run LIFO when its owning call frame unwinds.
type DeferredCall struct {
	Fn   value.Value
	Args []value.Value
}

// Context carries the control-flow signals threaded through every
// statement evaluation: is_returning/is_breaking/is_continuing/
// is_throwing, the active call stack, and one defer slice per call
// frame depth.
type Context struct {
	Returning bool
	ReturnValue value.Value

	Breaking   bool
	Continuing bool

	Throwing   bool
	Exception  value.Value

	callStack  []herr.StackFrame
	deferStack [][]DeferredCall

	RecursionDepth int
	MaxRecursion   int

	// SpanCtx carries the current OpenTelemetry span context so nested
	// calls parent their span off the calling frame's span rather than
	// starting a fresh trace per call; internal/eval saves and restores
	// it around each call frame.
	SpanCtx context.Context
}

// New creates a Context with the given recursion-depth ceiling (spec's
// recursion-depth ceiling raising RecursionError).
func New(maxRecursion int) *Context {
	if maxRecursion <= 0 {
		maxRecursion = 2000
	}
	return &Context{MaxRecursion: maxRecursion, SpanCtx: context.Background()}
}

// PushCall enters a new call frame: records the stack-trace entry and
// pushes a fresh (empty) defer slice. It returns RecursionError once
// MaxRecursion is exceeded.
func (c *Context) PushCall(function string, line int) error {
	if len(c.callStack) >= c.MaxRecursion {
		return herr.New(herr.RecursionError, "maximum call depth %d exceeded", c.MaxRecursion)
	}
	c.callStack = append(c.callStack, herr.StackFrame{Function: function, Line: line})
	c.deferStack = append(c.deferStack, nil)
	c.RecursionDepth = len(c.callStack)
	return nil
}

// CallDepth returns the number of call frames currently on the stack.
func (c *Context) CallDepth() int {
	return len(c.callStack)
}

// PopCall leaves the current call frame, returning its queued deferred
// calls in LIFO order for the evaluator to run before fully unwinding.
func (c *Context) PopCall() []DeferredCall {
	n := len(c.deferStack)
	if n == 0 {
		return nil
	}
	defers := c.deferStack[n-1]
	c.deferStack = c.deferStack[:n-1]
	if len(c.callStack) > 0 {
		c.callStack = c.callStack[:len(c.callStack)-1]
	}
	c.RecursionDepth = len(c.callStack)
	// reverse into LIFO order
	for i, j := 0, len(defers)-1; i < j; i, j = i+1, j-1 {
		defers[i], defers[j] = defers[j], defers[i]
	}
	return defers
}

// Defer queues a call to run when the current call frame unwinds.
func (c *Context) Defer(fn value.Value, args []value.Value) {
	n := len(c.deferStack)
	if n == 0 {
		return
	}
	c.deferStack[n-1] = append(c.deferStack[n-1], DeferredCall{Fn: fn, Args: args})
}

// StackTrace returns a copy of the current call stack, most recent call
// first, suitable for attaching to a herr.Error via WithFrames.
func (c *Context) StackTrace() []herr.StackFrame {
	out := make([]herr.StackFrame, len(c.callStack))
	for i := range c.callStack {
		out[i] = c.callStack[len(c.callStack)-1-i]
	}
	return out
}

// ClearReturn resets the return signal and value once a function body
// absorbs a `return`; ClearBreak and ClearContinue do the same for a loop
// absorbing `break`/`continue`.
func (c *Context) ClearReturn() {
	c.Returning = false
	c.ReturnValue = value.Value{}
}

func (c *Context) ClearBreak()    { c.Breaking = false }
func (c *Context) ClearContinue() { c.Continuing = false }

// Unwinding reports whether any control-flow signal is active and a
// statement sequence should stop executing further siblings.
func (c *Context) Unwinding() bool {
	return c.Returning || c.Breaking || c.Continuing || c.Throwing
}

// Throw sets the throwing flag with the given exception value.
func (c *Context) Throw(v value.Value) {
	c.Throwing = true
	c.Exception = v
}

// ClearThrow clears the throwing flag, e.g. once a catch clause has
// handled the exception.
func (c *Context) ClearThrow() {
	c.Throwing = false
	c.Exception = value.Value{}
}
