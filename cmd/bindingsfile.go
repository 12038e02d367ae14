package cmd

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/itsmostafa/scriptbridge/internal/bindings"
	"github.com/itsmostafa/scriptbridge/internal/engine"
	"github.com/itsmostafa/scriptbridge/internal/session"
)

// bindingsFile is the YAML form of an engine's two scopes.
//
//	global:
//	  greeting: hello
//	local:
//	  count: 3
type bindingsFile struct {
	Global map[string]any `yaml:"global,omitempty"`
	Local  map[string]any `yaml:"local,omitempty"`
}

func loadBindingsFile(path string) (*bindingsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bindings file: %w", err)
	}
	var f bindingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bindings file %s: %w", path, err)
	}
	return &f, nil
}

// apply installs the file's scopes on e. A global section creates the
// global scope; local values are added to the existing local scope.
func (f *bindingsFile) apply(e *engine.Engine) error {
	if f.Global != nil {
		if err := e.SetBindings(bindings.FromMap(f.Global), bindings.GlobalScope); err != nil {
			return err
		}
	}
	for name, value := range f.Local {
		e.Put(name, value)
	}
	return nil
}

// dumpBindings writes both scopes of e as YAML. Values YAML cannot hold are
// written as a short description.
func dumpBindings(w io.Writer, e *engine.Engine) error {
	out := bindingsFile{Local: yamlMap(e.Bindings(bindings.LocalScope).Snapshot())}
	if g := e.Bindings(bindings.GlobalScope); g != nil {
		out.Global = yamlMap(g.Snapshot())
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode bindings: %w", err)
	}
	return enc.Close()
}

func yamlMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = yamlValue(v)
	}
	return out
}

func yamlValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64:
		return v
	case error:
		return val.Error()
	case map[string]any:
		return yamlMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = yamlValue(item)
		}
		return out
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("<%s>", session.KindOf(v))
	}
	return formatValue(v)
}
