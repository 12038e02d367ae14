package engine

import (
	"errors"
	"fmt"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// ErrEvaluation matches every error an evaluation call returns.
var ErrEvaluation = errors.New("script evaluation failed")

// IncompleteInputError is returned when the source ends before a complete
// unit does. Nothing was submitted to the session.
type IncompleteInputError struct {
	// Remaining is the text that could not be completed.
	Remaining string
}

func (e *IncompleteInputError) Error() string { return "incomplete script" }

func (e *IncompleteInputError) Is(target error) bool { return target == ErrEvaluation }

// CompileRejectedError reports a unit the session refused to compile.
type CompileRejectedError struct {
	Position session.Position
	Message  string
	Source   string
}

func (e *CompileRejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

func (e *CompileRejectedError) Is(target error) bool { return target == ErrEvaluation }

// RuntimeFailureError wraps the error a script raised, reconstructed to its
// registered type when possible.
type RuntimeFailureError struct {
	Err error
}

func (e *RuntimeFailureError) Error() string { return e.Err.Error() }

func (e *RuntimeFailureError) Unwrap() error { return e.Err }

func (e *RuntimeFailureError) Is(target error) bool { return target == ErrEvaluation }

// MarshalError describes a binding that could not be moved between the host
// and the session. It is logged, never returned from an evaluation.
type MarshalError struct {
	// Op is "push" or "read".
	Op   string
	Name string
	Err  error
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("%s binding %q: %v", e.Op, e.Name, e.Err)
}

func (e *MarshalError) Unwrap() error { return e.Err }

func (e *MarshalError) Is(target error) bool { return target == ErrEvaluation }
