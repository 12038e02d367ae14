package tengovm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/d5/tengo/v2"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// builtins returns the functions added to every unit. They read the current
// streams at call time so Redirect takes effect without recompiling.
func (s *Session) builtins() map[string]*tengo.UserFunction {
	write := func(name string, newline bool) *tengo.UserFunction {
		return &tengo.UserFunction{
			Name: name,
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				parts := make([]string, len(args))
				for i, arg := range args {
					parts[i] = describe(arg)
				}
				out := strings.Join(parts, " ")
				if newline {
					out += "\n"
				}
				if _, err := io.WriteString(s.streams.Out, out); err != nil {
					return nil, err
				}
				return tengo.UndefinedValue, nil
			},
		}
	}

	return map[string]*tengo.UserFunction{
		session.LookupFunc: {
			Name: session.LookupFunc,
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				if len(args) < 1 {
					return nil, tengo.ErrWrongNumArguments
				}
				key, ok := tengo.ToString(args[0])
				if !ok {
					return nil, tengo.ErrInvalidArgumentType{Name: "first", Expected: "string", Found: args[0].TypeName()}
				}
				name := key
				if len(args) > 1 {
					if name, ok = tengo.ToString(args[1]); !ok {
						return nil, tengo.ErrInvalidArgumentType{Name: "second", Expected: "string", Found: args[1].TypeName()}
					}
				}
				return s.lookup(key, name), nil
			},
		},
		"print":   write("print", false),
		"println": write("println", true),
		"eprintln": {
			Name: "eprintln",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				parts := make([]string, len(args))
				for i, arg := range args {
					parts[i] = describe(arg)
				}
				fmt.Fprintln(s.streams.Err, strings.Join(parts, " "))
				return tengo.UndefinedValue, nil
			},
		},
		"read_line": {
			Name: "read_line",
			Value: func(args ...tengo.Object) (tengo.Object, error) {
				line, err := s.reader().ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return nil, err
				}
				if err != nil && line == "" {
					return tengo.UndefinedValue, nil
				}
				return &tengo.String{Value: strings.TrimRight(line, "\r\n")}, nil
			},
		},
	}
}
