package jsvm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// setupEnvironment installs the host lookup function and the output
// helpers. Helpers read the current streams at call time so Redirect takes
// effect without reinstalling them.
func (s *Session) setupEnvironment() {
	vm := s.vm

	lookup := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.NewTypeError("%s requires a binding name", session.LookupFunc))
		}
		key := call.Argument(0).String()
		name := key
		if len(call.Arguments) > 1 {
			name = call.Argument(1).String()
		}
		return s.lookup(key, name)
	}

	writeTo := func(w func() io.Writer) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.String()
			}
			fmt.Fprintln(w(), strings.Join(args, " "))
			return goja.Undefined()
		}
	}
	stdout := func() io.Writer { return s.streams.Out }
	stderr := func() io.Writer { return s.streams.Err }

	readLine := func(call goja.FunctionCall) goja.Value {
		line, err := s.reader().ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			panic(vm.NewGoError(err))
		}
		if err != nil && line == "" {
			return goja.Null()
		}
		return vm.ToValue(strings.TrimRight(line, "\r\n"))
	}

	console := vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"log":   writeTo(stdout),
		"info":  writeTo(stdout),
		"debug": writeTo(stdout),
		"warn":  writeTo(stderr),
		"error": writeTo(stderr),
	} {
		// Setting a property on a fresh ordinary object cannot fail.
		_ = console.Set(name, fn)
	}

	for name, value := range map[string]any{
		session.LookupFunc: lookup,
		"print":            writeTo(stdout),
		"readLine":         readLine,
		"console":          console,
	} {
		_ = vm.Set(name, value)
	}
}
