// Package tengovm implements an execution session for Tengo scripts.
//
// Tengo compiles whole scripts, so the session keeps the value of every
// declared variable between units and adds them to each new script as
// globals. Maps and arrays keep their identity because the same objects are
// handed to every script.
package tengovm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/parser"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/d5/tengo/v2/token"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// Language is the name this backend registers under.
const Language = "tengo"

// resultVar receives the value of a trailing expression.
const resultVar = "__result"

// runtimeErrorType is the type name reported for failed runs.
const runtimeErrorType = "RuntimeError"

// Config configures a Session.
type Config struct {
	// MaxAllocs limits object allocations per unit. Zero means unlimited.
	MaxAllocs int64
	// Modules lists the standard library modules scripts may import.
	Modules []string
}

// DefaultConfig returns a Config that allows every standard module.
func DefaultConfig() Config {
	return Config{Modules: stdlib.AllModuleNames()}
}

type exported struct {
	runtime tengo.Object
	host    any
}

// Session is a persistent Tengo session.
type Session struct {
	config  Config
	modules *tengo.ModuleMap
	funcs   map[string]*tengo.UserFunction
	order   []string
	state   map[string]tengo.Object
	cache   map[string]exported
	frame   *session.Frame
	streams session.Streams
	in      *bufio.Reader
}

var _ session.Session = (*Session)(nil)

// New creates an empty session.
func New(config Config) *Session {
	s := &Session{
		config:  config,
		modules: stdlib.GetModuleMap(config.Modules...),
		state:   make(map[string]tengo.Object),
		cache:   make(map[string]exported),
		streams: session.Streams{In: strings.NewReader(""), Out: io.Discard, Err: io.Discard},
	}
	s.funcs = s.builtins()
	return s
}

// Language returns "tengo".
func (s *Session) Language() string { return Language }

// Analyze splits the leading statement off src.
func (s *Session) Analyze(src string) session.Completion { return Analyze(src) }

var identifierPattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

var keywords = map[string]bool{
	"break": true, "continue": true, "else": true, "for": true,
	"func": true, "error": true, "immutable": true, "if": true,
	"return": true, "export": true, "true": true, "false": true,
	"in": true, "undefined": true, "import": true,
}

// Declaration declares v.Name with the value the host binds to key.
func (s *Session) Declaration(v session.Variable, key string) (string, error) {
	if !identifierPattern.MatchString(v.Name) || keywords[v.Name] || v.Name == resultVar {
		return "", fmt.Errorf("cannot declare %q: not a valid identifier", v.Name)
	}
	if _, builtin := s.funcs[v.Name]; builtin {
		return "", fmt.Errorf("cannot declare %q: name is reserved by the session", v.Name)
	}
	return fmt.Sprintf("%s := %s(%s, %s)", v.Name, session.LookupFunc, strconv.Quote(key), strconv.Quote(v.Name)), nil
}

// unitShape describes the top-level statements of one unit.
type unitShape struct {
	declared   []string
	expression bool
	// assigned names the variable when the unit ends with an assignment to
	// a single existing variable.
	assigned string
}

func inspect(p *parsed) unitShape {
	var shape unitShape
	seen := make(map[string]bool)
	for _, st := range p.stmts {
		a, ok := st.(*parser.AssignStmt)
		if !ok || a.Token != token.Define {
			continue
		}
		for _, lhs := range a.LHS {
			if id, ok := lhs.(*parser.Ident); ok && !seen[id.Name] {
				seen[id.Name] = true
				shape.declared = append(shape.declared, id.Name)
			}
		}
	}
	if len(p.stmts) == 0 {
		return shape
	}
	switch last := p.stmts[len(p.stmts)-1].(type) {
	case *parser.ExprStmt:
		shape.expression = true
	case *parser.AssignStmt:
		if last.Token != token.Define && len(last.LHS) == 1 {
			if id, ok := last.LHS[0].(*parser.Ident); ok {
				shape.assigned = id.Name
			}
		}
	}
	return shape
}

// Submit evaluates one unit.
func (s *Session) Submit(ctx context.Context, src string) []session.Event {
	p, err := parse(src)
	if err != nil {
		return []session.Event{rejected(src, parseDiagnostic(err))}
	}
	shape := inspect(p)

	code, shift := src, rewrite{}
	if shape.expression {
		last := p.stmts[len(p.stmts)-1]
		start, end := p.offset(last.Pos()), p.offset(last.End())
		prefix := resultVar + " := ("
		code = src[:start] + prefix + src[start:end] + ")" + src[end:]
		shift = rewrite{at: start, by: len(prefix)}
	}

	script := tengo.NewScript([]byte(code))
	script.SetImports(s.modules)
	if s.config.MaxAllocs > 0 {
		script.SetMaxAllocs(s.config.MaxAllocs)
	}
	defining := make(map[string]bool, len(shape.declared))
	for _, name := range shape.declared {
		defining[name] = true
	}
	for _, name := range s.order {
		if defining[name] {
			continue
		}
		if err := script.Add(name, s.state[name]); err != nil {
			return []session.Event{rejected(src, &session.Diagnostic{Message: err.Error()})}
		}
	}
	for name, fn := range s.funcs {
		if !defining[name] {
			_ = script.Add(name, fn)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return []session.Event{rejected(src, compileDiagnostic(src, shift, err))}
	}

	s.frame = session.FrameFrom(ctx)
	defer func() { s.frame = nil }()

	err = s.run(ctx, compiled)
	s.collect(compiled, shape.declared)
	if err != nil {
		return []session.Event{failed(src, err)}
	}

	var events []session.Event
	for _, name := range shape.declared {
		events = append(events, session.Event{Kind: session.EventVar, Source: src, Name: name})
	}
	switch {
	case shape.expression:
		s.frame.Capture(fromObject(compiled.Get(resultVar).Object()))
		events = append(events, session.Event{Kind: session.EventValue, Source: src})
	case shape.assigned != "" && compiled.IsDefined(shape.assigned):
		s.frame.Capture(fromObject(compiled.Get(shape.assigned).Object()))
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
	obj, ok := s.state[name]
	if !ok {
		return nil, fmt.Errorf("variable %q is not declared", name)
	}
	host := fromObject(obj)
	if c, ok := s.cache[name]; ok && c.runtime == obj {
		host = session.Reconcile(c.host, host)
	}
	s.cache[name] = exported{runtime: obj, host: host}
	return host, nil
}

// Redirect swaps the streams used by print, println, eprintln and
// read_line. Output of the fmt module always goes to the process stdout.
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

func (s *Session) run(ctx context.Context, c *tengo.Compiled) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &session.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return c.RunContext(ctx)
}

// collect copies the globals of a finished run back into the session.
func (s *Session) collect(c *tengo.Compiled, declared []string) {
	for _, name := range declared {
		if _, ok := s.state[name]; !ok {
			s.order = append(s.order, name)
		}
		s.state[name] = tengo.UndefinedValue
	}
	for _, name := range s.order {
		if c.IsDefined(name) {
			s.state[name] = c.Get(name).Object()
		}
	}
}

func (s *Session) lookup(key, name string) tengo.Object {
	host, ok := s.frame.Lookup(key)
	if !ok {
		return tengo.UndefinedValue
	}
	if c, ok := s.cache[name]; ok && session.SameValue(c.host, host) {
		return c.runtime
	}
	return toObject(host)
}

func (s *Session) reader() *bufio.Reader {
	if s.in == nil {
		s.in = bufio.NewReader(s.streams.In)
	}
	return s.in
}

// rewrite records text inserted before offset at, so positions reported
// against the compiled code can be mapped back to the submitted unit.
type rewrite struct {
	at, by int
}

func (r rewrite) restore(offset int) int {
	if r.by > 0 && offset >= r.at+r.by {
		return offset - r.by
	}
	if r.by > 0 && offset > r.at {
		return r.at
	}
	return offset
}

func rejected(src string, d *session.Diagnostic) session.Event {
	return session.Event{Kind: session.EventRejected, Source: src, Diag: d}
}

func compileDiagnostic(src string, shift rewrite, err error) *session.Diagnostic {
	var ce *tengo.CompilerError
	if errors.As(err, &ce) && ce.Node != nil {
		// The script is the only file in its set, so its base is 1.
		offset := shift.restore(int(ce.Node.Pos()) - 1)
		return &session.Diagnostic{Position: session.PositionAt(src, offset), Message: ce.Err.Error()}
	}
	return parseDiagnostic(err)
}

// failed converts a run error. Tengo has no exceptions, so every failure
// is reported as a runtime error whose cause is the error the VM returned.
func failed(src string, err error) session.Event {
	var p *session.PanicError
	if errors.As(err, &p) {
		return session.Event{Kind: session.EventFailed, Source: src, Err: err}
	}
	lines := strings.Split(err.Error(), "\n")
	f := &session.EvalFailure{
		TypeName: runtimeErrorType,
		Message:  strings.TrimPrefix(lines[0], "Runtime Error: "),
		Cause:    err,
	}
	for _, line := range lines[1:] {
		if frame, ok := parseFrame(line); ok {
			f.Stack = append(f.Stack, frame)
		}
	}
	return session.Event{Kind: session.EventFailed, Source: src, Err: f, Trace: f.Stack}
}

var framePattern = regexp.MustCompile(`at\s+(.*?):(\d+):(\d+)\s*$`)

// parseFrame reads one "at file:line:col" line from a tengo error.
func parseFrame(line string) (session.StackFrame, bool) {
	m := framePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return session.StackFrame{}, false
	}
	l, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])
	return session.StackFrame{Source: m[1], Line: l, Column: c}, true
}
