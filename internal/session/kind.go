package session

import (
	"go/token"
	"reflect"
	"time"
)

// Kind is the declared type of a host value as seen by a session.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTime
	KindError
	KindList
	KindMap
	KindFunc
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindTime:   "time",
	KindError:  "error",
	KindList:   "list",
	KindMap:    "map",
	KindFunc:   "func",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// KindOf maps a host value onto the closed set of kinds sessions understand.
func KindOf(v any) Kind {
	if v == nil {
		return KindNull
	}
	t := reflect.TypeOf(v)
	if t == timeType {
		return KindTime
	}
	if t.Implements(errorType) {
		return KindError
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes
		}
		return KindList
	case reflect.Array:
		return KindList
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return KindMap
		}
		return KindObject
	case reflect.Func:
		return KindFunc
	case reflect.Pointer:
		if rv := reflect.ValueOf(v); rv.IsNil() {
			return KindNull
		}
		return KindObject
	default:
		return KindObject
	}
}

// DeclaredType returns the name of the type a declaration for v uses. When
// the dynamic type is not exported the nearest accessible description is
// used instead; nil declares as "any".
func DeclaredType(v any) string {
	if v == nil {
		return "any"
	}
	return accessibleType(reflect.TypeOf(v))
}

func accessibleType(t reflect.Type) string {
	if t.Name() == "" {
		switch t.Kind() {
		case reflect.Pointer:
			return "*" + accessibleType(t.Elem())
		case reflect.Slice:
			return "[]" + accessibleType(t.Elem())
		case reflect.Map:
			return "map[" + accessibleType(t.Key()) + "]" + accessibleType(t.Elem())
		}
		return t.String()
	}
	if t.PkgPath() != "" && !token.IsExported(t.Name()) {
		if t.Kind() == reflect.Struct || t.Kind() == reflect.Interface {
			return "any"
		}
		return t.Kind().String()
	}
	return t.String()
}

// Canonical normalises scalar values to the representation sessions use:
// every integer becomes int64 and every float float64. Other values are
// returned unchanged.
func Canonical(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.(error); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	}
	return v
}

// Variable is a transient record used to build one declaration.
type Variable struct {
	Name  string
	Type  string
	Kind  Kind
	Value any
}

// NewVariable records name and the discovered type of value.
func NewVariable(name string, value any) Variable {
	return Variable{
		Name:  name,
		Type:  DeclaredType(value),
		Kind:  KindOf(value),
		Value: value,
	}
}
