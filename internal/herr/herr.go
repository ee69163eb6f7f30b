// Package herr implements the Hemlock runtime error taxonomy: a single
// error type carrying a Kind, a message, and a captured call-stack trace,
// formatted the way uncaught exceptions are reported to users.
package herr

import (
	"fmt"
	"strings"
)

// Kind identifies which runtime error category a failure belongs to.
type Kind string

const (
	TypeError        Kind = "TypeError"
	NameError        Kind = "NameError"
	ConstError       Kind = "ConstError"
	IndexError       Kind = "IndexError"
	FieldError       Kind = "FieldError"
	DivisionByZero   Kind = "DivisionByZero"
	RecursionError   Kind = "RecursionError"
	ChannelClosed    Kind = "ChannelClosed"
	TaskError        Kind = "TaskError"
	SerializationError Kind = "SerializationError"
	ParseError       Kind = "ParseError"
	ModuleError      Kind = "ModuleError"
	IOError          Kind = "IOError"
	FFIError         Kind = "FFIError"
)

// StackFrame is one entry in a captured call-stack trace, most recent
// call first.
type StackFrame struct {
	Function string
	Line     int
}

// Error is the concrete runtime error type raised by the evaluator,
// thread pool, channels, and JSON codec. It implements the standard
// error interface.
type Error struct {
	Kind    Kind
	Message string
	Frames  []StackFrame
}

// New builds a runtime error of the given kind with a formatted message.
// No stack frames are attached; call WithFrames to attach the call
// stack captured from an ExecutionContext.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithFrames returns a copy of e with the given call-stack frames
// attached, most recent call first.
func (e *Error) WithFrames(frames []StackFrame) *Error {
	out := *e
	out.Frames = frames
	return &out
}

// Error implements the error interface with the one-line "<Kind>: <message>"
// form; use Report for the full multi-line user-visible format.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Report renders the full user-visible failure format: the one-line
// Kind/message header followed by a "Stack trace" block, most recent
// call first.
func (e *Error) Report() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if len(e.Frames) > 0 {
		b.WriteString("\nStack trace (most recent call first):\n")
		for _, f := range e.Frames {
			fmt.Fprintf(&b, "  at %s() (line %d)\n", f.Function, f.Line)
		}
	}
	return b.String()
}

// Is reports whether err is a *Error of the given kind, so callers can
// branch on error category. It is a direct type assertion: an error that
// wraps a *Error is not unwrapped.
func Is(err error, kind Kind) bool {
	he, ok := err.(*Error)
	return ok && he.Kind == kind
}
