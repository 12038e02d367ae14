package jsvm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dop251/goja"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

func submit(t *testing.T, s *Session, frame *session.Frame, src string) []session.Event {
	t.Helper()
	ctx := session.WithFrame(context.Background(), frame)
	events := s.Submit(ctx, src)
	if len(events) == 0 {
		t.Fatalf("expected at least one event for %q", src)
	}
	return events
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		complete  bool
		source    string
		remaining string
	}{
		{
			name:     "single expression",
			src:      "1 + 1",
			complete: true,
			source:   "1 + 1",
		},
		{
			name:      "declaration then expression",
			src:       "var x = 2; x",
			complete:  true,
			source:    "var x = 2; ",
			remaining: "x",
		},
		{
			name:      "second statement starts with a parenthesis",
			src:       "x = 1;\n(y)",
			complete:  true,
			source:    "x = 1;\n",
			remaining: "(y)",
		},
		{
			name:      "unterminated block",
			src:       "function f() {",
			complete:  false,
			remaining: "function f() {",
		},
		{
			name:      "dangling operator",
			src:       "ab-",
			complete:  false,
			remaining: "ab-",
		},
		{
			name:     "malformed input is handed over whole",
			src:      "1 +* 2",
			complete: true,
			source:   "1 +* 2",
		},
		{
			name:      "string open at end of input",
			src:       `var s = "abc`,
			remaining: `var s = "abc`,
		},
		{
			name:     "string cut by a line break",
			src:      "var s = 'abc\nx",
			complete: true,
			source:   "var s = 'abc\nx",
		},
		{
			name:     "blank",
			src:      "  \n ",
			complete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.src)
			if got.Complete != tt.complete {
				t.Fatalf("expected complete=%v, got %+v", tt.complete, got)
			}
			if got.Source != tt.source {
				t.Errorf("expected source %q, got %q", tt.source, got.Source)
			}
			if got.Remaining != tt.remaining {
				t.Errorf("expected remaining %q, got %q", tt.remaining, got.Remaining)
			}
		})
	}
}

func TestSession_ExpressionCapture(t *testing.T) {
	s := New(DefaultConfig())
	frame := session.NewFrame(nil)

	events := submit(t, s, frame, "1 + 1")
	if events[0].Kind != session.EventValue {
		t.Fatalf("expected a value event, got %s", events[0].Kind)
	}
	v, ok := frame.Last()
	if !ok || v != int64(2) {
		t.Errorf("expected captured 2, got %#v", v)
	}
	if len(s.Variables()) != 0 {
		t.Errorf("expressions must not declare variables, got %v", s.Variables())
	}
}

func TestSession_Declarations(t *testing.T) {
	s := New(DefaultConfig())
	frame := session.NewFrame(nil)

	events := submit(t, s, frame, "var x = 2;")
	if events[0].Kind != session.EventVar || events[0].Name != "x" {
		t.Fatalf("expected var event for x, got %+v", events[0])
	}
	v, err := s.Value("x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != int64(2) {
		t.Errorf("expected 2, got %#v", v)
	}

	submit(t, s, frame, "let a = 1, [b, c] = [2, 3], {d} = {d: 4};")
	want := []string{"x", "a", "b", "c", "d"}
	got := s.Variables()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected variables %v, got %v", want, got)
	}
}

func TestSession_RedeclarationReplaces(t *testing.T) {
	s := New(DefaultConfig())
	frame := session.NewFrame(nil)

	submit(t, s, frame, "let y = 1")
	events := submit(t, s, frame, "const y = 5")
	if !events[0].OK() {
		t.Fatalf("expected redeclaration to succeed, got %+v", events[0])
	}
	v, err := s.Value("y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != int64(5) {
		t.Errorf("expected 5, got %#v", v)
	}
	if len(s.Variables()) != 1 {
		t.Errorf("expected a single variable, got %v", s.Variables())
	}
}

func TestSession_Rejected(t *testing.T) {
	s := New(DefaultConfig())
	events := submit(t, s, session.NewFrame(nil), "1 +* 2")
	if events[0].Kind != session.EventRejected {
		t.Fatalf("expected rejection, got %s", events[0].Kind)
	}
	if events[0].Diag == nil || events[0].Diag.Message == "" {
		t.Errorf("expected a diagnostic, got %+v", events[0].Diag)
	}
}

func TestSession_Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    string
		src      string
		typeName string
		message  string
	}{
		{
			name:     "builtin error",
			src:      "throw new TypeError('bad')",
			typeName: "TypeError",
			message:  "bad",
		},
		{
			name:     "user class",
			setup:    "class IOError extends Error {}",
			src:      "throw new IOError('disk')",
			typeName: "IOError",
			message:  "disk",
		},
		{
			name:     "no message",
			src:      "throw new RangeError()",
			typeName: "RangeError",
			message:  "",
		},
		{
			name:     "primitive",
			src:      "throw 'boom'",
			typeName: "string",
			message:  "boom",
		},
		{
			name:     "reference error",
			src:      "undefined_function()",
			typeName: "ReferenceError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(DefaultConfig())
			frame := session.NewFrame(nil)
			if tt.setup != "" {
				submit(t, s, frame, tt.setup)
			}
			events := submit(t, s, frame, tt.src)
			if events[0].Kind != session.EventFailed {
				t.Fatalf("expected failure, got %s", events[0].Kind)
			}
			var f *session.EvalFailure
			if !errors.As(events[0].Err, &f) {
				t.Fatalf("expected *session.EvalFailure, got %T", events[0].Err)
			}
			if f.TypeName != tt.typeName {
				t.Errorf("expected type %q, got %q", tt.typeName, f.TypeName)
			}
			if tt.message != "" && f.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, f.Message)
			}
			if tt.name == "no message" && f.Message != "" {
				t.Errorf("expected empty message, got %q", f.Message)
			}
		})
	}
}

func TestSession_GoErrorKeepsCause(t *testing.T) {
	s := New(DefaultConfig())
	frame := session.NewFrame(map[string]any{
		"fail": func() error { return io.ErrUnexpectedEOF },
	})

	decl, err := s.Declaration(session.NewVariable("fail", nil), "fail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	submit(t, s, frame, decl)

	events := submit(t, s, frame, "fail()")
	if events[0].Kind != session.EventFailed {
		t.Fatalf("expected failure, got %s", events[0].Kind)
	}
	if !errors.Is(events[0].Err, io.ErrUnexpectedEOF) {
		t.Errorf("expected the Go error to be reachable, got %v", events[0].Err)
	}
}

func TestSession_Declaration(t *testing.T) {
	s := New(DefaultConfig())

	if _, err := s.Declaration(session.NewVariable("a.b", 1), "a.b"); err == nil {
		t.Error("expected an error for a dotted name")
	}
	if _, err := s.Declaration(session.NewVariable("class", 1), "class"); err == nil {
		t.Error("expected an error for a reserved word")
	}
	if _, err := s.Declaration(session.NewVariable(session.LookupFunc, 1), session.LookupFunc); err == nil {
		t.Error("expected an error for the lookup function name")
	}

	frame := session.NewFrame(map[string]any{"_": 2})
	decl, err := s.Declaration(session.NewVariable("__", 2), "_")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := submit(t, s, frame, decl)
	if events[0].Kind != session.EventVar || events[0].Name != "__" {
		t.Fatalf("expected var event for __, got %+v", events[0])
	}
	v, err := s.Value("__")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != int64(2) {
		t.Errorf("expected 2, got %#v", v)
	}
}

func TestSession_HostMapsAreShared(t *testing.T) {
	s := New(DefaultConfig())
	m := map[string]any{"a": int64(1)}
	frame := session.NewFrame(map[string]any{"m": m})

	decl, _ := s.Declaration(session.NewVariable("m", m), "m")
	submit(t, s, frame, decl)
	submit(t, s, frame, "m.a = 5")

	if m["a"] != int64(5) {
		t.Errorf("expected script writes to reach the host map, got %#v", m["a"])
	}
	v, err := s.Value("m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.SameValue(v, m) {
		t.Error("expected the host map itself to be read back")
	}
}

func TestSession_ObjectIdentitySurvivesRoundTrip(t *testing.T) {
	s := New(DefaultConfig())
	frame := session.NewFrame(nil)
	submit(t, s, frame, "class P { hello() { return 'hi' } }")
	submit(t, s, frame, "var p = new P()")

	host, err := s.Value("p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The host hands back what it read; the script still sees a P.
	frame = session.NewFrame(map[string]any{"p": host})
	decl, _ := s.Declaration(session.NewVariable("p", host), "p")
	submit(t, s, frame, decl)
	submit(t, s, frame, "p.hello()")
	if v, _ := frame.Last(); v != "hi" {
		t.Errorf("expected method call to work after round trip, got %#v", v)
	}
}

func TestSession_Redirect(t *testing.T) {
	s := New(DefaultConfig())
	var out, errOut bytes.Buffer
	restore := s.Redirect(session.Streams{
		In:  strings.NewReader("first\nsecond\n"),
		Out: &out,
		Err: &errOut,
	})

	frame := session.NewFrame(nil)
	submit(t, s, frame, `print("hello", 1)`)
	submit(t, s, frame, `console.error("oops")`)
	submit(t, s, frame, `readLine()`)
	line, _ := frame.Last()
	restore()

	submit(t, s, frame, `console.log("discarded")`)

	if out.String() != "hello 1\n" {
		t.Errorf("unexpected output: %q", out.String())
	}
	if errOut.String() != "oops\n" {
		t.Errorf("unexpected error output: %q", errOut.String())
	}
	if line != "first" {
		t.Errorf("expected first input line, got %#v", line)
	}
}

func TestSession_ValueUnknown(t *testing.T) {
	s := New(DefaultConfig())
	if _, err := s.Value("missing"); err == nil {
		t.Error("expected an error for an undeclared variable")
	}
}

func TestSession_StackOverflow(t *testing.T) {
	s := New(Config{MaxCallStackSize: 64})
	frame := session.NewFrame(nil)
	submit(t, s, frame, "function down(n) { return down(n + 1) }")

	events := submit(t, s, frame, "down(0)")
	if events[0].Kind != session.EventFailed {
		t.Fatalf("expected failure, got %s", events[0].Kind)
	}
	var overflow *goja.StackOverflowError
	if !errors.As(events[0].Err, &overflow) {
		t.Errorf("expected a stack overflow, got %T: %v", events[0].Err, events[0].Err)
	}

	// The session is still usable afterwards.
	submit(t, s, frame, "1 + 1")
	if v, _ := frame.Last(); v != int64(2) {
		t.Errorf("expected 2, got %#v", v)
	}
}
