package engine

import (
	"fmt"
	"log/slog"

	"github.com/itsmostafa/scriptbridge/internal/session"
	"github.com/itsmostafa/scriptbridge/internal/session/jsvm"
	"github.com/itsmostafa/scriptbridge/internal/session/tengovm"
)

// Config holds engine configuration
type Config struct {
	// Language selects the session backend: "js" or "tengo".
	Language string
	// Strict compiles JavaScript in strict mode.
	Strict bool
	// MaxCallStackSize bounds JavaScript recursion. Zero keeps the default.
	MaxCallStackSize int
	// MaxAllocs bounds tengo allocations per unit. Zero means unlimited.
	MaxAllocs int64
	Logger    *slog.Logger
	// Errors reconstructs script failures. Nil uses the standard registry.
	Errors *ErrorRegistry
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		Language: jsvm.Language,
		Logger:   slog.Default(),
		Errors:   NewErrorRegistry(),
	}
}

// Languages lists the session backends an engine can run.
func Languages() []string {
	return []string{jsvm.Language, tengovm.Language}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Errors == nil {
		c.Errors = d.Errors
	}
	return c
}

func (c Config) newSession() (session.Session, error) {
	switch c.Language {
	case jsvm.Language:
		cfg := jsvm.DefaultConfig()
		cfg.Strict = c.Strict
		cfg.MaxCallStackSize = c.MaxCallStackSize
		return jsvm.New(cfg), nil
	case tengovm.Language:
		cfg := tengovm.DefaultConfig()
		cfg.MaxAllocs = c.MaxAllocs
		return tengovm.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown language %q (available: %v)", c.Language, Languages())
	}
}
