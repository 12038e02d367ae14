package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
	"github.com/itsmostafa/scriptbridge/internal/engine"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	evalSource, bindingsPath, dump = "", "", false
	language, strict, logLevel = "js", false, "error"

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestEvalCommand(t *testing.T) {
	script := writeFile(t, "script.js", "var a = 20;\na + 1\n")

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "inline expression",
			args: []string{"eval", "-e", "1 + 1"},
			want: []string{"2"},
		},
		{
			name: "script file",
			args: []string{"eval", script},
			want: []string{"21"},
		},
		{
			name: "script output",
			args: []string{"eval", "-e", `print("from script")`},
			want: []string{"from script"},
		},
		{
			name: "tengo",
			args: []string{"eval", "--lang", "tengo", "-e", "x := 4\nx * x"},
			want: []string{"16"},
		},
		{
			name:    "incomplete",
			args:    []string{"eval", "-e", "function f() {"},
			wantErr: true,
		},
		{
			name:    "unknown language",
			args:    []string{"eval", "--lang", "cobol", "-e", "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got output %q", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q, got %q", want, out)
				}
			}
		})
	}
}

func TestEvalCommand_BindingsFile(t *testing.T) {
	path := writeFile(t, "bindings.yaml", "global:\n  g: 2\nlocal:\n  n: 3\n")

	out, err := run(t, "eval", "--bindings", path, "--dump", "-e", "var m = n * g;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"6", "global:", "g: 2", "local:", "m: 6", "n: 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestEvalCommand_RuntimeError(t *testing.T) {
	_, err := run(t, "eval", "-e", "throw new TypeError('nope')")
	var se *engine.ScriptError
	if !errors.As(err, &se) || se.Name != "TypeError" {
		t.Fatalf("expected a TypeError, got %v", err)
	}
	if !strings.Contains(formatError(err), "TypeError: nope") {
		t.Errorf("unexpected rendering: %q", formatError(err))
	}
}

func TestLoadBindingsFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantGlobal bool
		wantLocal  map[string]any
		wantErr    bool
	}{
		{
			name:       "both scopes",
			content:    "global:\n  a: 1\nlocal:\n  b: [1, 2]\n  c: text\n",
			wantGlobal: true,
			wantLocal:  map[string]any{"c": "text"},
		},
		{
			name:      "local only",
			content:   "local:\n  c: 1.5\n",
			wantLocal: map[string]any{"c": 1.5},
		},
		{
			name:    "malformed",
			content: "global: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := loadBindingsFile(writeFile(t, "b.yaml", tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			e, err := engine.New(engine.DefaultConfig())
			if err != nil {
				t.Fatalf("failed to create engine: %v", err)
			}
			if err := f.apply(e); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := e.Bindings(bindings.GlobalScope) != nil; got != tt.wantGlobal {
				t.Errorf("expected global scope %v, got %v", tt.wantGlobal, got)
			}
			for k, want := range tt.wantLocal {
				if got := e.Get(k); got != want {
					t.Errorf("expected %s=%#v, got %#v", k, want, got)
				}
			}
		})
	}
}

func TestYAMLValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "scalar", in: int64(3), want: int64(3)},
		{name: "func", in: func() {}, want: "<func>"},
		{name: "error", in: errors.New("bad"), want: "bad"},
		{name: "nil", in: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yamlValue(tt.in); got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}

	nested := yamlValue(map[string]any{"f": func() {}, "l": []any{1}}).(map[string]any)
	if nested["f"] != "<func>" {
		t.Errorf("expected nested func to be described, got %#v", nested["f"])
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: "null"},
		{in: "s", want: `"s"`},
		{in: int64(2), want: "2"},
		{in: []any{int64(1), "a"}, want: "[1 a]"},
		{in: func() {}, want: "<func>"},
	}

	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%#v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestReplCommand(t *testing.T) {
	e, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	e.Put("answer", 42)

	var out bytes.Buffer
	if replCommand(&out, e, ":vars") {
		t.Error(":vars must not quit")
	}
	if !strings.Contains(out.String(), "answer") || !strings.Contains(out.String(), "42") {
		t.Errorf("unexpected :vars output %q", out.String())
	}

	out.Reset()
	replCommand(&out, e, ":globals")
	if !strings.Contains(out.String(), "(none)") {
		t.Errorf("unexpected :globals output %q", out.String())
	}

	if !replCommand(&out, e, ":quit") {
		t.Error("expected :quit to quit")
	}
}
