package session

import (
	"fmt"
	"strings"
)

// StackFrame is one entry of a script stack trace.
type StackFrame struct {
	Function string
	Source   string
	Line     int
	Column   int
}

func (f StackFrame) String() string {
	fn := f.Function
	if fn == "" {
		fn = "<anonymous>"
	}
	if f.Source == "" && f.Line == 0 {
		return fn
	}
	return fmt.Sprintf("%s (%s:%d:%d)", fn, f.Source, f.Line, f.Column)
}

// FormatStack renders a trace one frame per line.
func FormatStack(trace []StackFrame) string {
	var b strings.Builder
	for _, f := range trace {
		b.WriteString("\tat ")
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	return b.String()
}

// EvalFailure is an error raised by evaluated code. TypeName is the
// script-side type of the raised value, e.g. "TypeError".
type EvalFailure struct {
	TypeName string
	Message  string
	Cause    error
	Stack    []StackFrame
}

func (f *EvalFailure) Error() string {
	if f.Message == "" {
		return f.TypeName
	}
	return f.TypeName + ": " + f.Message
}

func (f *EvalFailure) Unwrap() error {
	return f.Cause
}

// PanicError reports a Go panic recovered while a session evaluated a unit.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
