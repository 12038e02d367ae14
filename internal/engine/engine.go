// Package engine evaluates source text in a persistent script session while
// keeping the session's variables in step with host bindings.
//
// Before each call every global and local binding is declared in the
// session; after it every session variable is written back to one of the
// two scopes. Results and failures come back as Go values and errors.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
	"github.com/itsmostafa/scriptbridge/internal/session"
)

// Engine evaluates source against one persistent session. mu serializes
// evaluations; the context accessors do not take it, so host functions
// called from a script may read and write bindings.
type Engine struct {
	mu         sync.Mutex
	id         string
	config     Config
	sess       session.Session
	marshaller *Marshaller
	logger     *slog.Logger
	context    atomic.Pointer[bindings.ScriptContext]
}

// New creates an engine with its own session and no global scope.
func New(config Config) (*Engine, error) {
	return newEngine(config, nil)
}

func newEngine(config Config, global *bindings.Bindings) (*Engine, error) {
	config = config.withDefaults()
	sess, err := config.newSession()
	if err != nil {
		return nil, err
	}
	return newEngineWithSession(config, sess, global), nil
}

func newEngineWithSession(config Config, sess session.Session, global *bindings.Bindings) *Engine {
	config = config.withDefaults()
	id := uuid.New().String()
	logger := config.Logger.With("session", id, "lang", sess.Language())

	sc := bindings.NewScriptContext()
	if global != nil {
		// Only an invalid scope makes SetBindings fail.
		_ = sc.SetBindings(global, bindings.GlobalScope)
	}
	e := &Engine{
		id:         id,
		config:     config,
		sess:       sess,
		marshaller: NewMarshaller(sess, logger),
		logger:     logger,
	}
	e.context.Store(sc)
	return e
}

// ID identifies the engine's session in logs.
func (e *Engine) ID() string { return e.id }

// Language returns the session backend's name.
func (e *Engine) Language() string { return e.sess.Language() }

// Eval evaluates src against the engine's context.
func (e *Engine) Eval(src string) (any, error) {
	return e.EvalInContext(src, e.Context())
}

// EvalReader reads r to the end and evaluates its contents.
func (e *Engine) EvalReader(r io.Reader) (any, error) {
	return e.EvalReaderInContext(r, e.Context())
}

// EvalWithBindings evaluates src with local standing in for the context's
// local scope. Variables are written back into local.
func (e *Engine) EvalWithBindings(src string, local *bindings.Bindings) (any, error) {
	if local == nil {
		local = bindings.New()
	}
	return e.eval(src, e.Context(), local)
}

// EvalInContext evaluates src against sc instead of the engine's context.
func (e *Engine) EvalInContext(src string, sc *bindings.ScriptContext) (any, error) {
	if sc == nil {
		return nil, fmt.Errorf("eval: nil script context")
	}
	return e.eval(src, sc, sc.Bindings(bindings.LocalScope))
}

// EvalReaderInContext reads r to the end and evaluates it against sc.
func (e *Engine) EvalReaderInContext(r io.Reader, sc *bindings.ScriptContext) (any, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return e.EvalInContext(string(src), sc)
}

// IsComplete reports whether src ends on a unit boundary. Incomplete input
// makes every eval method fail with *IncompleteInputError.
func (e *Engine) IsComplete(src string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := split(e.sess, src)
	return err == nil
}

func (e *Engine) eval(src string, sc *bindings.ScriptContext, local *bindings.Bindings) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	units, err := split(e.sess, src)
	if err != nil {
		return nil, err
	}
	global := sc.Bindings(bindings.GlobalScope)

	return withRedirectedStreams(e.sess, sc, e.logger, func() (any, error) {
		ctx := e.marshaller.Push(context.Background(), global, local)
		events, declared := e.submitAll(ctx, units)
		defer e.marshaller.ReadBack(global, local, declared)
		return e.extractResult(ctx, events)
	})
}

// Get returns the local binding for key.
func (e *Engine) Get(key string) any {
	v, _ := e.Bindings(bindings.LocalScope).Get(key)
	return v
}

// Put sets the local binding for key.
func (e *Engine) Put(key string, value any) {
	e.Bindings(bindings.LocalScope).Put(key, value)
}

// Bindings returns the context's bindings for scope. The global scope is
// nil unless one was set.
func (e *Engine) Bindings(scope bindings.Scope) *bindings.Bindings {
	return e.Context().Bindings(scope)
}

// SetBindings replaces the context's bindings for scope.
func (e *Engine) SetBindings(b *bindings.Bindings, scope bindings.Scope) error {
	return e.Context().SetBindings(b, scope)
}

// Context returns the engine's default script context.
func (e *Engine) Context() *bindings.ScriptContext {
	return e.context.Load()
}

// SetContext replaces the engine's default script context.
func (e *Engine) SetContext(sc *bindings.ScriptContext) {
	if sc == nil {
		return
	}
	e.context.Store(sc)
}

// NewBindings returns an empty binding set.
func (e *Engine) NewBindings() *bindings.Bindings {
	return bindings.New()
}
