// Package session defines the contract between the bridge core and an
// incrementally evaluated execution session. Backends live in subpackages.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// LookupFunc is the name of the host function sessions expose to generated
// declarations for resolving binding values.
const LookupFunc = "__binding"

// Session evaluates complete units of source text against persistent
// in-session declarations. A Session is not safe for concurrent use.
type Session interface {
	// Language returns the backend name, e.g. "js".
	Language() string

	// Analyze reports whether src starts with a complete unit and splits it
	// from the remaining text.
	Analyze(src string) Completion

	// Declaration returns a declaration unit binding v.Name to the value the
	// lookup function yields for key. It fails for names the language cannot
	// declare.
	Declaration(v Variable, key string) (string, error)

	// Submit evaluates one complete unit. The call frame in ctx resolves
	// lookups and receives captured expression values.
	Submit(ctx context.Context, src string) []Event

	// Variables returns the names in Session State in declaration order.
	Variables() []string

	// Value fetches the live value of a session variable.
	Value(name string) (any, error)

	// Redirect swaps the streams used by evaluated code and returns a
	// function restoring the previous ones.
	Redirect(s Streams) (restore func())
}

// Completion is the result of analyzing source text.
type Completion struct {
	// Complete is false when the text ends before its first unit does.
	Complete bool
	// Source is the leading complete unit.
	Source string
	// Remaining is the text after Source.
	Remaining string
}

// EventKind classifies an outcome Event.
type EventKind int

const (
	// EventValue is a successful expression unit; its value is captured in
	// the call frame.
	EventValue EventKind = iota
	// EventVar is a successful declaration of the variable in Event.Name.
	EventVar
	// EventStatement is a successful unit that yields no value.
	EventStatement
	// EventRejected is a unit refused by the compiler.
	EventRejected
	// EventFailed is a unit that raised at run time.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventValue:
		return "value"
	case EventVar:
		return "var"
	case EventStatement:
		return "statement"
	case EventRejected:
		return "rejected"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is the outcome of submitting one unit.
type Event struct {
	Kind   EventKind
	Source string
	// Name is set for EventVar.
	Name string
	// Diag is set for EventRejected.
	Diag *Diagnostic
	// Err is set for EventFailed. It is an *EvalFailure when the evaluated
	// code raised, any other error for failures of the machinery itself.
	Err error
	// Trace is the stack at the point of failure, when known.
	Trace []StackFrame
}

// OK reports whether the unit evaluated successfully.
func (e Event) OK() bool {
	return e.Kind != EventRejected && e.Kind != EventFailed
}

// Position locates a diagnostic in the submitted unit.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionAt converts a byte offset into src to a 1-based line and column.
// Offsets outside src are clamped.
func PositionAt(src string, offset int) Position {
	offset = max(0, min(offset, len(src)))
	line := strings.Count(src[:offset], "\n") + 1
	col := offset - strings.LastIndexByte(src[:offset], '\n')
	return Position{Line: line, Column: col}
}

// Diagnostic is a compiler message.
type Diagnostic struct {
	Position Position
	Message  string
}

// Streams are the input and outputs evaluated code uses.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}
