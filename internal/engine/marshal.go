package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
	"github.com/itsmostafa/scriptbridge/internal/session"
)

// underscore is pushed under a different name because sessions reserve it.
const (
	underscore      = "_"
	underscoreAlias = "__"
)

var errAliasTaken = fmt.Errorf("session name %s is bound explicitly", underscoreAlias)

// Marshaller moves bindings into a session before evaluation and copies the
// session's variables back into the host scopes afterwards.
type Marshaller struct {
	sess   session.Session
	logger *slog.Logger
	// aliases maps session names back to the binding key they came from.
	aliases map[string]string
}

// NewMarshaller returns a Marshaller for sess.
func NewMarshaller(sess session.Session, logger *slog.Logger) *Marshaller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Marshaller{sess: sess, logger: logger, aliases: make(map[string]string)}
}

// Push declares every binding visible through global and local in the
// session, local values winning. It returns ctx carrying the call frame the
// declarations read their values from. Bindings the session cannot declare
// are logged and skipped.
func (m *Marshaller) Push(ctx context.Context, global, local *bindings.Bindings) context.Context {
	combined := bindings.Combine(global, local)
	frame := session.NewFrame(combined)
	ctx = session.WithFrame(ctx, frame)

	keys := make([]string, 0, len(combined))
	for k := range combined {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// An explicit __ binding owns the session name; _ is then not pushed.
	_, explicit := combined[underscoreAlias]
	if explicit {
		delete(m.aliases, underscoreAlias)
	}

	for _, key := range keys {
		name := key
		if key == underscore {
			if explicit {
				m.logger.Warn("skipping binding", "error", &MarshalError{Op: "push", Name: key, Err: errAliasTaken})
				continue
			}
			name = underscoreAlias
		}
		v := session.NewVariable(name, combined[key])
		decl, err := m.sess.Declaration(v, key)
		if err != nil {
			m.logger.Warn("skipping binding", "error", &MarshalError{Op: "push", Name: key, Err: err})
			continue
		}
		if err := firstFailure(m.sess.Submit(ctx, decl)); err != nil {
			m.logger.Warn("skipping binding", "error", &MarshalError{Op: "push", Name: key, Err: err})
			continue
		}
		if name != key {
			m.aliases[name] = key
		}
		m.logger.Debug("pushed binding", "name", name, "type", v.Type)
	}
	// Pushing may have captured values; the call starts clean.
	frame.Reset()
	return ctx
}

// ReadBack writes every session variable into global or local. A name goes
// to local when there is no global scope, when local already holds it, when
// global does not, or when the caller's source declared it during this call.
// Only a global name the call merely used or assigned goes back to global.
//
// The declared-this-call rule keeps a global that a script re-declares from
// being overwritten for every engine sharing it. Without it a re-declared
// global name would be written back to global.
func (m *Marshaller) ReadBack(global, local *bindings.Bindings, declared map[string]bool) {
	for _, name := range m.sess.Variables() {
		value, err := m.sess.Value(name)
		if err != nil {
			m.logger.Warn("skipping variable", "error", &MarshalError{Op: "read", Name: name, Err: err})
			continue
		}
		key := m.keyFor(name)
		scope := resolveScope(key, global, local, declared[name])
		if scope == bindings.GlobalScope {
			global.Put(key, value)
		} else {
			local.Put(key, value)
		}
		m.logger.Debug("read back variable", "name", key, "scope", scope)
	}
}

func (m *Marshaller) keyFor(name string) string {
	if key, ok := m.aliases[name]; ok {
		return key
	}
	return name
}

// resolveScope picks the scope a session variable is written back to.
func resolveScope(key string, global, local *bindings.Bindings, declaredNow bool) bindings.Scope {
	switch {
	case global == nil:
		return bindings.LocalScope
	case local.Has(key) || !global.Has(key):
		return bindings.LocalScope
	case declaredNow:
		return bindings.LocalScope
	default:
		return bindings.GlobalScope
	}
}

// firstFailure returns the error of the first event that did not succeed.
func firstFailure(events []session.Event) error {
	for _, ev := range events {
		switch ev.Kind {
		case session.EventRejected:
			if ev.Diag != nil {
				return &CompileRejectedError{Position: ev.Diag.Position, Message: ev.Diag.Message, Source: ev.Source}
			}
			return errors.New("declaration rejected")
		case session.EventFailed:
			return ev.Err
		}
	}
	return nil
}
