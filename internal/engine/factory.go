package engine

import (
	"sync"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
)

// Factory creates engines that share one global scope.
type Factory struct {
	mu     sync.Mutex
	config Config
	global *bindings.Bindings
}

// NewFactory returns a factory with an empty global scope.
func NewFactory(config Config) *Factory {
	return &Factory{
		config: config.withDefaults(),
		global: bindings.New(),
	}
}

// NewEngine creates an engine whose context uses the factory's global
// scope.
func (f *Factory) NewEngine() (*Engine, error) {
	return newEngine(f.config, f.Bindings())
}

// Bindings returns the global scope handed to new engines.
func (f *Factory) Bindings() *bindings.Bindings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.global
}

// SetBindings replaces the global scope for engines created afterwards.
// Existing engines keep the scope they were created with.
func (f *Factory) SetBindings(b *bindings.Bindings) {
	if b == nil {
		b = bindings.New()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global = b
}

// Language returns the language engines from this factory run.
func (f *Factory) Language() string { return f.config.Language }

// Languages lists the session backends available.
func (f *Factory) Languages() []string { return Languages() }
