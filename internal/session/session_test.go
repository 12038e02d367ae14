package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type hidden struct{ n int }

type Exported struct{ N int }

type label string

func TestKindOf(t *testing.T) {
	var nilPtr *Exported
	tests := []struct {
		name  string
		value any
		want  Kind
	}{
		{"nil", nil, KindNull},
		{"typed nil pointer", nilPtr, KindNull},
		{"bool", true, KindBool},
		{"int", 2, KindInt},
		{"uint8", uint8(2), KindInt},
		{"float32", float32(1.5), KindFloat},
		{"string", "x", KindString},
		{"named string", label("x"), KindString},
		{"bytes", []byte("x"), KindBytes},
		{"time", time.Unix(0, 0), KindTime},
		{"error", errors.New("boom"), KindError},
		{"list", []any{1, 2}, KindList},
		{"array", [2]int{1, 2}, KindList},
		{"map", map[string]any{"a": 1}, KindMap},
		{"int keyed map", map[int]string{1: "a"}, KindObject},
		{"func", func() int { return 1 }, KindFunc},
		{"struct", Exported{N: 1}, KindObject},
		{"pointer", &Exported{N: 1}, KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.value); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDeclaredType(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil is most general", nil, "any"},
		{"builtin", 2, "int"},
		{"exported struct", Exported{}, "session.Exported"},
		{"unexported struct falls back", hidden{n: 1}, "any"},
		{"pointer to unexported", &hidden{}, "*any"},
		{"unexported named string", label("x"), "string"},
		{"slice of unexported", []hidden{}, "[]any"},
		{"map", map[string]int{}, "map[string]int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeclaredType(tt.value); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"int", 2, int64(2)},
		{"int32", int32(-3), int64(-3)},
		{"uint16", uint16(7), int64(7)},
		{"float32", float32(0.5), float64(0.5)},
		{"named string", label("x"), "x"},
		{"bool", true, true},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonical(tt.value); got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}

	err := errors.New("kept")
	if Canonical(err) != err {
		t.Error("expected errors to be returned unchanged")
	}
}

func TestNewVariable(t *testing.T) {
	v := NewVariable("x", 2)
	if v.Name != "x" || v.Type != "int" || v.Kind != KindInt || v.Value != 2 {
		t.Errorf("unexpected variable record: %+v", v)
	}
}

func TestSameValue(t *testing.T) {
	m := map[string]any{"a": 1}
	s := []any{1, 2}
	p := &Exported{}
	uncomparable := struct{ v any }{v: []int{1}}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same map", m, m, true},
		{"different maps", m, map[string]any{"a": 1}, false},
		{"same slice", s, s, true},
		{"resliced", s, s[:1], false},
		{"same pointer", p, p, true},
		{"equal ints", int64(2), int64(2), true},
		{"different types", int64(2), 2, false},
		{"both nil", nil, nil, true},
		{"one nil", nil, 1, false},
		{"uncomparable dynamic value", uncomparable, uncomparable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameValue(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFrame(t *testing.T) {
	f := NewFrame(map[string]any{"x": 2})
	ctx := WithFrame(context.Background(), f)

	got := FrameFrom(ctx)
	if got != f {
		t.Fatal("expected frame to round trip through the context")
	}
	if v, ok := got.Lookup("x"); !ok || v != 2 {
		t.Errorf("expected x=2, got %v", v)
	}
	if _, ok := got.Last(); ok {
		t.Error("expected no captured value yet")
	}

	got.Capture(1)
	got.Capture(3)
	if v, ok := got.Last(); !ok || v != 3 {
		t.Errorf("expected last capture to win, got %v", v)
	}

	got.Reset()
	if _, ok := got.Last(); ok {
		t.Error("expected reset to clear the capture")
	}

	if FrameFrom(context.Background()) != nil {
		t.Error("expected no frame in a bare context")
	}
	var nilFrame *Frame
	if _, ok := nilFrame.Lookup("x"); ok {
		t.Error("expected nil frame lookups to miss")
	}
}

func TestEvalFailure(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	f := &EvalFailure{
		TypeName: "TypeError",
		Message:  "bad",
		Cause:    cause,
		Stack:    []StackFrame{{Function: "f", Source: "<eval>", Line: 1, Column: 3}},
	}
	if f.Error() != "TypeError: bad" {
		t.Errorf("unexpected message: %s", f.Error())
	}
	if !errors.Is(f, io.ErrUnexpectedEOF) {
		t.Error("expected failure to unwrap to its cause")
	}
	if !strings.Contains(FormatStack(f.Stack), "f (<eval>:1:3)") {
		t.Errorf("unexpected stack: %s", FormatStack(f.Stack))
	}

	p := &PanicError{Value: cause}
	if !errors.Is(p, io.ErrUnexpectedEOF) {
		t.Error("expected panic error to unwrap an error value")
	}
}

func TestEventKind(t *testing.T) {
	if (Event{Kind: EventVar}).OK() != true || (Event{Kind: EventFailed}).OK() != false {
		t.Error("unexpected OK classification")
	}
	if EventRejected.String() != "rejected" {
		t.Errorf("unexpected name: %s", EventRejected)
	}
}

func TestReconcile(t *testing.T) {
	t.Run("map is refreshed in place", func(t *testing.T) {
		prev := map[string]any{"a": 1, "gone": true}
		got := Reconcile(prev, map[string]any{"a": 2})
		m, ok := got.(map[string]any)
		if !ok || !SameValue(m, prev) {
			t.Fatalf("expected prev back, got %#v", got)
		}
		if m["a"] != 2 || len(m) != 1 {
			t.Errorf("expected refreshed contents, got %#v", m)
		}
	})

	t.Run("same map is untouched", func(t *testing.T) {
		m := map[string]any{"a": 1}
		if got := Reconcile(m, m).(map[string]any); got["a"] != 1 {
			t.Errorf("expected contents to survive, got %#v", got)
		}
	})

	t.Run("slice of same length", func(t *testing.T) {
		prev := []any{1, 2}
		got := Reconcile(prev, []any{3, 4})
		if !SameValue(got, prev) || prev[0] != 3 {
			t.Errorf("expected prev refreshed, got %#v", got)
		}
	})

	t.Run("slice of different length", func(t *testing.T) {
		next := []any{1, 2, 3}
		if got := Reconcile([]any{1}, next); !SameValue(got, next) {
			t.Errorf("expected next, got %#v", got)
		}
	})

	t.Run("map holding itself", func(t *testing.T) {
		prev := map[string]any{}
		prev["self"] = prev
		next := map[string]any{"n": 1}
		next["self"] = next
		Reconcile(prev, next)
		if !SameValue(prev["self"], prev) || prev["n"] != 1 {
			t.Errorf("expected prev to point at itself, got %#v", prev)
		}
	})

	t.Run("scalars", func(t *testing.T) {
		if got := Reconcile(1, "x"); got != "x" {
			t.Errorf("expected next, got %#v", got)
		}
	})
}

func TestOpenQuote(t *testing.T) {
	tests := []struct {
		name string
		src  string
		at   Position
		want bool
	}{
		{name: "open double quote", src: `x = "abc`, at: Position{Line: 1, Column: 5}, want: true},
		{name: "open single quote on second line", src: "y\nx = 'a\\'b", at: Position{Line: 2, Column: 5}, want: true},
		{name: "closed", src: `x = "abc" +`, at: Position{Line: 1, Column: 5}, want: false},
		{name: "line break", src: "x = \"abc\n", at: Position{Line: 1, Column: 5}, want: false},
		{name: "not a quote", src: "x = abc", at: Position{Line: 1, Column: 5}, want: false},
		{name: "outside source", src: "x", at: Position{Line: 3, Column: 1}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OpenQuote(tt.src, OffsetOf(tt.src, tt.at)); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
