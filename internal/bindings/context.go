package bindings

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Scope selects one of the two binding tiers.
type Scope int

const (
	// LocalScope is private to one engine and overrides GlobalScope.
	LocalScope Scope = 100
	// GlobalScope is shared by every engine created from the same factory.
	GlobalScope Scope = 200
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case LocalScope:
		return "local"
	case GlobalScope:
		return "global"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ScriptContext groups the bindings of both scopes with the streams an
// evaluation uses for input and output.
type ScriptContext struct {
	mu     sync.RWMutex
	global *Bindings
	local  *Bindings
	reader io.Reader
	writer io.Writer
	errw   io.Writer
}

// NewScriptContext creates a context with an empty local scope, no global
// scope and the process standard streams.
func NewScriptContext() *ScriptContext {
	return &ScriptContext{
		local:  New(),
		reader: os.Stdin,
		writer: os.Stdout,
		errw:   os.Stderr,
	}
}

// Bindings returns the bindings of scope. The global scope may be nil.
func (c *ScriptContext) Bindings(scope Scope) *Bindings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch scope {
	case GlobalScope:
		return c.global
	case LocalScope:
		return c.local
	default:
		return nil
	}
}

// SetBindings replaces the bindings of scope. Setting the local scope to nil
// installs an empty Bindings; setting the global scope to nil removes it.
func (c *ScriptContext) SetBindings(b *Bindings, scope Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch scope {
	case GlobalScope:
		c.global = b
	case LocalScope:
		if b == nil {
			b = New()
		}
		c.local = b
	default:
		return fmt.Errorf("invalid scope: %s", scope)
	}
	return nil
}

// Reader returns the input stream.
func (c *ScriptContext) Reader() io.Reader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reader
}

// Writer returns the output stream.
func (c *ScriptContext) Writer() io.Writer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writer
}

// ErrorWriter returns the error stream.
func (c *ScriptContext) ErrorWriter() io.Writer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errw
}

// SetReader sets the input stream.
func (c *ScriptContext) SetReader(r io.Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reader = r
}

// SetWriter sets the output stream.
func (c *ScriptContext) SetWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer = w
}

// SetErrorWriter sets the error stream.
func (c *ScriptContext) SetErrorWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errw = w
}
