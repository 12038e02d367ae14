// Package jsvm implements an execution session for JavaScript on top of the
// goja runtime. One goja.Runtime lives for the lifetime of the Session, so
// declarations accumulate across submitted units.
package jsvm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// Language is the name this backend registers under.
const Language = "js"

// Config configures a Session.
type Config struct {
	// Strict compiles every unit in strict mode.
	Strict bool
	// SourceName names units in stack traces.
	SourceName string
	// MaxCallStackSize bounds script recursion. Zero keeps the goja default.
	MaxCallStackSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{SourceName: "<eval>"}
}

// exported remembers the host value handed out for a variable so that a
// value coming back unchanged maps onto the same runtime value.
type exported struct {
	runtime goja.Value
	host    any
}

// Session is a persistent JavaScript session.
type Session struct {
	vm      *goja.Runtime
	config  Config
	order   []string
	known   map[string]bool
	cache   map[string]exported
	frame   *session.Frame
	streams session.Streams
	in      *bufio.Reader
}

var _ session.Session = (*Session)(nil)

// New creates a session with a fresh runtime.
func New(config Config) *Session {
	if config.SourceName == "" {
		config.SourceName = DefaultConfig().SourceName
	}
	s := &Session{
		vm:      goja.New(),
		config:  config,
		known:   make(map[string]bool),
		cache:   make(map[string]exported),
		streams: session.Streams{In: strings.NewReader(""), Out: io.Discard, Err: io.Discard},
	}
	if config.MaxCallStackSize > 0 {
		s.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	s.setupEnvironment()
	return s
}

// Language returns "js".
func (s *Session) Language() string { return Language }

// Analyze splits the leading statement off src.
func (s *Session) Analyze(src string) session.Completion { return Analyze(src) }

// Declaration declares v.Name with the value the host binds to key.
func (s *Session) Declaration(v session.Variable, key string) (string, error) {
	if !isIdentifier(v.Name) || v.Name == session.LookupFunc {
		return "", fmt.Errorf("cannot declare %q: not a valid identifier", v.Name)
	}
	k, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("cannot quote key %q: %w", key, err)
	}
	n, _ := json.Marshal(v.Name)
	return fmt.Sprintf("var %s = %s(%s, %s);", v.Name, session.LookupFunc, k, n), nil
}

// Submit evaluates one unit.
func (s *Session) Submit(ctx context.Context, src string) []session.Event {
	prg, err := parser.ParseFile(nil, s.config.SourceName, src, 0)
	if err != nil {
		return []session.Event{rejected(src, parseDiagnostic(err))}
	}
	shape := inspect(prg)

	program, err := goja.Compile(s.config.SourceName, rebindLexical(src, shape.lexical), s.config.Strict)
	if err != nil {
		return []session.Event{rejected(src, compileDiagnostic(src, err))}
	}

	s.frame = session.FrameFrom(ctx)
	defer func() { s.frame = nil }()

	val, err := s.run(program)
	// Hoisted declarations exist even when the initializer raised.
	s.remember(shape.declared)
	if err != nil {
		return []session.Event{s.failure(src, err)}
	}

	var events []session.Event
	for _, name := range shape.declared {
		events = append(events, session.Event{Kind: session.EventVar, Source: src, Name: name})
	}
	if shape.expression {
		if s.frame != nil {
			s.frame.Capture(exportValue(val))
		}
		events = append(events, session.Event{Kind: session.EventValue, Source: src})
	}
	if len(events) == 0 {
		events = append(events, session.Event{Kind: session.EventStatement, Source: src})
	}
	return events
}

// Variables returns the declared names in declaration order.
func (s *Session) Variables() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Value exports the current value of a declared variable.
func (s *Session) Value(name string) (any, error) {
	if !s.known[name] {
		return nil, fmt.Errorf("variable %q is not declared", name)
	}
	v := s.vm.Get(name)
	if v == nil {
		return nil, fmt.Errorf("variable %q is not defined", name)
	}
	host := exportValue(v)
	if c, ok := s.cache[name]; ok && c.runtime.StrictEquals(v) {
		host = session.Reconcile(c.host, host)
	}
	s.cache[name] = exported{runtime: v, host: host}
	return host, nil
}

// Redirect swaps the streams used by print, console and readLine.
func (s *Session) Redirect(st session.Streams) func() {
	prev, prevIn := s.streams, s.in
	if st.In == nil {
		st.In = strings.NewReader("")
	}
	if st.Out == nil {
		st.Out = io.Discard
	}
	if st.Err == nil {
		st.Err = io.Discard
	}
	s.streams, s.in = st, nil
	return func() {
		s.streams, s.in = prev, prevIn
	}
}

func (s *Session) run(p *goja.Program) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &session.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return s.vm.RunProgram(p)
}

func (s *Session) remember(names []string) {
	for _, name := range names {
		if !s.known[name] {
			s.known[name] = true
			s.order = append(s.order, name)
		}
	}
}

// lookup resolves the host value bound to key, reusing the runtime value
// last exported for name when the host still holds the same value.
func (s *Session) lookup(key, name string) goja.Value {
	host, ok := s.frame.Lookup(key)
	if !ok {
		return goja.Undefined()
	}
	if c, ok := s.cache[name]; ok && session.SameValue(c.host, host) {
		return c.runtime
	}
	return s.vm.ToValue(host)
}

func (s *Session) reader() *bufio.Reader {
	if s.in == nil {
		s.in = bufio.NewReader(s.streams.In)
	}
	return s.in
}

func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func rejected(src string, d *session.Diagnostic) session.Event {
	return session.Event{Kind: session.EventRejected, Source: src, Diag: d}
}

func parseDiagnostic(err error) *session.Diagnostic {
	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		e := list[0]
		return &session.Diagnostic{
			Position: session.Position{Line: e.Position.Line, Column: e.Position.Column},
			Message:  e.Message,
		}
	}
	return &session.Diagnostic{Message: err.Error()}
}

func compileDiagnostic(src string, err error) *session.Diagnostic {
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return &session.Diagnostic{Position: session.PositionAt(src, syntaxErr.Offset), Message: syntaxErr.Message}
	}
	var refErr *goja.CompilerReferenceError
	if errors.As(err, &refErr) {
		return &session.Diagnostic{Position: session.PositionAt(src, refErr.Offset), Message: refErr.Message}
	}
	return &session.Diagnostic{Message: err.Error()}
}
