package jsvm

import (
	"github.com/dop251/goja"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// failure classifies an error returned by the runtime. Values thrown by the
// script become *session.EvalFailure; anything else is passed on with
// whatever trace is available.
func (s *Session) failure(src string, err error) session.Event {
	ev := session.Event{Kind: session.EventFailed, Source: src, Err: err}
	switch e := err.(type) {
	case *goja.InterruptedError:
		ev.Trace = convertStack(e.Stack())
	case *goja.StackOverflowError:
		ev.Trace = convertStack(e.Stack())
	case *goja.Exception:
		f := evalFailure(e)
		ev.Err = f
		ev.Trace = f.Stack
	}
	return ev
}

func evalFailure(e *goja.Exception) *session.EvalFailure {
	f := &session.EvalFailure{Stack: convertStack(e.Stack())}
	val := e.Value()
	obj, ok := val.(*goja.Object)
	if !ok || obj == nil {
		f.TypeName = primitiveType(val)
		if exp := exportValue(val); exp != nil {
			f.Message = val.String()
		}
		return f
	}

	if goErr := goError(obj); goErr != nil {
		f.TypeName = goErrorType
		f.Message = goErr.Error()
		f.Cause = goErr
		return f
	}

	f.TypeName = constructorName(obj)
	if m := obj.Get("message"); present(m) {
		f.Message = m.String()
	}
	f.Cause = causeOf(obj)
	return f
}

// goErrorType is the script-side type of errors raised by Go functions.
const goErrorType = "GoError"

// goError returns the Go error carried by a GoError object.
func goError(obj *goja.Object) error {
	if v := obj.Get("value"); present(v) {
		if err, ok := v.Export().(error); ok {
			return err
		}
	}
	return nil
}

// causeOf returns the cause of an Error created with {cause}.
func causeOf(obj *goja.Object) error {
	if err := goError(obj); err != nil {
		return err
	}
	c := obj.Get("cause")
	if !present(c) {
		return nil
	}
	if err, ok := c.Export().(error); ok {
		return err
	}
	if co, ok := c.(*goja.Object); ok {
		nested := &session.EvalFailure{TypeName: constructorName(co), Cause: causeOf(co)}
		if m := co.Get("message"); present(m) {
			nested.Message = m.String()
		}
		return nested
	}
	return &session.EvalFailure{TypeName: primitiveType(c), Message: c.String()}
}

func constructorName(obj *goja.Object) string {
	if c, ok := obj.Get("constructor").(*goja.Object); ok && c != nil {
		if n := c.Get("name"); present(n) && n.String() != "" {
			return n.String()
		}
	}
	if n := obj.Get("name"); present(n) && n.String() != "" {
		return n.String()
	}
	return obj.ClassName()
}

func primitiveType(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	switch v.Export().(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	default:
		return v.ExportType().String()
	}
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

func convertStack(frames []goja.StackFrame) []session.StackFrame {
	out := make([]session.StackFrame, 0, len(frames))
	for i := range frames {
		f := &frames[i]
		pos := f.Position()
		out = append(out, session.StackFrame{
			Function: f.FuncName(),
			Source:   f.SrcName(),
			Line:     pos.Line,
			Column:   pos.Column,
		})
	}
	return out
}
