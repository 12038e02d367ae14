package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// EmptyMessage replaces the message of failures that carry none.
const EmptyMessage = "<None>"

// ErrorConstructor builds a host error from a script failure's message and
// cause. Returning nil means the failure cannot be reconstructed.
type ErrorConstructor func(message string, cause error) error

// ScriptError is the host form of a standard script error type.
type ScriptError struct {
	Name    string
	Message string
	Cause   error
	Stack   []session.StackFrame
}

func (e *ScriptError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

func (e *ScriptError) Unwrap() error { return e.Cause }

// SetStack restores the trace recorded by the session.
func (e *ScriptError) SetStack(trace []session.StackFrame) { e.Stack = trace }

// InternalError wraps a failure that did not come from a value the script
// raised, such as a runtime interrupt or a panic inside the session.
type InternalError struct {
	TypeName string
	Message  string
	Cause    error
	Stack    []session.StackFrame
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error (%s): %s", e.TypeName, e.Message)
}

func (e *InternalError) Unwrap() error { return e.Cause }

type stackSetter interface {
	SetStack([]session.StackFrame)
}

// ErrorRegistry maps script error type names to constructors.
type ErrorRegistry struct {
	mu    sync.RWMutex
	ctors map[string]ErrorConstructor
}

// standardErrors are the JavaScript error types and the tengo runtime
// error, all reconstructed as *ScriptError.
var standardErrors = []string{
	"Error", "TypeError", "RangeError", "ReferenceError",
	"SyntaxError", "URIError", "EvalError", "AggregateError",
	"RuntimeError",
}

// NewErrorRegistry returns a registry that knows the standard script error
// types. Errors raised by Go functions called from a script are
// reconstructed as the original Go error.
func NewErrorRegistry() *ErrorRegistry {
	r := &ErrorRegistry{ctors: make(map[string]ErrorConstructor)}
	for _, name := range standardErrors {
		r.Register(name, scriptError(name))
	}
	r.Register("GoError", func(_ string, cause error) error { return cause })
	return r
}

func scriptError(name string) ErrorConstructor {
	return func(message string, cause error) error {
		return &ScriptError{Name: name, Message: message, Cause: cause}
	}
}

// Register installs ctor for typeName, replacing any previous one.
func (r *ErrorRegistry) Register(typeName string, ctor ErrorConstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[typeName] = ctor
}

// Lookup returns the constructor registered for typeName.
func (r *ErrorRegistry) Lookup(typeName string) (ErrorConstructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[typeName]
	return ctor, ok
}

// Names lists the registered type names in sorted order.
func (r *ErrorRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Translate converts a failure event's error into the error handed to the
// caller. A script failure is rebuilt through its registered constructor,
// falling back to the failure itself; anything else is wrapped in an
// InternalError.
func (r *ErrorRegistry) Translate(err error, trace []session.StackFrame) *RuntimeFailureError {
	var f *session.EvalFailure
	if errors.As(err, &f) {
		message := f.Message
		if message == "" {
			message = EmptyMessage
		}
		if ctor, ok := r.Lookup(f.TypeName); ok {
			if rebuilt := ctor(message, f.Cause); rebuilt != nil {
				if s, ok := rebuilt.(stackSetter); ok {
					s.SetStack(f.Stack)
				}
				return &RuntimeFailureError{Err: rebuilt}
			}
		}
		original := *f
		original.Message = message
		return &RuntimeFailureError{Err: &original}
	}

	message := ""
	if err != nil {
		message = err.Error()
	}
	if message == "" {
		message = EmptyMessage
	}
	return &RuntimeFailureError{Err: &InternalError{
		TypeName: fmt.Sprintf("%T", err),
		Message:  message,
		Cause:    err,
		Stack:    trace,
	}}
}
