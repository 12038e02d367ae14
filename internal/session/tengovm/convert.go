package tengovm

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/d5/tengo/v2"

	"github.com/itsmostafa/scriptbridge/internal/session"
)

// hostObject carries a host value tengo has no representation for. Scripts
// can pass it around and hand it back but cannot look inside.
type hostObject struct {
	tengo.ObjectImpl
	value any
}

func (o *hostObject) TypeName() string { return "host-value" }

func (o *hostObject) String() string { return fmt.Sprint(o.value) }

func (o *hostObject) IsFalsy() bool { return o.value == nil }

func (o *hostObject) Copy() tengo.Object { return o }

func (o *hostObject) Equals(x tengo.Object) bool {
	h, ok := x.(*hostObject)
	return ok && session.SameValue(o.value, h.value)
}

// toObject converts a host value into a tengo object.
func toObject(v any) tengo.Object {
	return (&toConverter{seen: make(map[refKey]tengo.Object)}).convert(v)
}

// refKey identifies a host container. A slice is keyed by its backing
// array and length so that re-slices convert separately.
type refKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// toConverter remembers the containers it has converted so that a value
// containing itself converts to a tengo object containing itself.
type toConverter struct {
	seen map[refKey]tengo.Object
}

func (c *toConverter) convert(v any) tengo.Object {
	v = session.Canonical(v)
	switch val := v.(type) {
	case nil:
		return tengo.UndefinedValue
	case tengo.Object:
		return val
	case int64:
		return &tengo.Int{Value: val}
	case float64:
		return &tengo.Float{Value: val}
	case string:
		return &tengo.String{Value: val}
	case bool:
		if val {
			return tengo.TrueValue
		}
		return tengo.FalseValue
	case []byte:
		return &tengo.Bytes{Value: val}
	case time.Time:
		return &tengo.Time{Value: val}
	case error:
		return &tengo.Error{Value: &tengo.String{Value: val.Error()}}
	case func(args ...tengo.Object) (tengo.Object, error):
		return &tengo.UserFunction{Value: val}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var key refKey
		if rv.Kind() == reflect.Slice && !rv.IsNil() {
			key = refKey{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}
			if o, ok := c.seen[key]; ok {
				return o
			}
		}
		arr := &tengo.Array{Value: make([]tengo.Object, rv.Len())}
		if key.ptr != 0 {
			c.seen[key] = arr
		}
		for i := range arr.Value {
			arr.Value[i] = c.convert(rv.Index(i).Interface())
		}
		return arr
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		key := refKey{typ: rv.Type(), ptr: rv.Pointer()}
		if o, ok := c.seen[key]; ok {
			return o
		}
		m := &tengo.Map{Value: make(map[string]tengo.Object, rv.Len())}
		c.seen[key] = m
		iter := rv.MapRange()
		for iter.Next() {
			m.Value[iter.Key().String()] = c.convert(iter.Value().Interface())
		}
		return m
	case reflect.Ptr:
		if rv.IsNil() {
			return tengo.UndefinedValue
		}
	}
	return &hostObject{value: v}
}

// fromObject converts a tengo object into a host value. Numbers come back
// as int64 and float64. A container reachable from itself converts to a
// host container reachable from itself.
func fromObject(o tengo.Object) any {
	return (&fromConverter{seen: make(map[tengo.Object]any)}).convert(o)
}

type fromConverter struct {
	seen map[tengo.Object]any
}

func (c *fromConverter) convert(o tengo.Object) any {
	switch val := o.(type) {
	case nil, *tengo.Undefined:
		return nil
	case *hostObject:
		return val.value
	case *tengo.Int:
		return val.Value
	case *tengo.Float:
		return val.Value
	case *tengo.String:
		return val.Value
	case *tengo.Bool:
		return !val.IsFalsy()
	case *tengo.Char:
		return string(val.Value)
	case *tengo.Bytes:
		return val.Value
	case *tengo.Time:
		return val.Value
	case *tengo.Error:
		return errors.New(describe(val.Value))
	case *tengo.Array:
		return c.slice(o, val.Value)
	case *tengo.ImmutableArray:
		return c.slice(o, val.Value)
	case *tengo.Map:
		return c.mapping(o, val.Value)
	case *tengo.ImmutableMap:
		return c.mapping(o, val.Value)
	default:
		return tengo.ToInterface(o)
	}
}

func (c *fromConverter) slice(o tengo.Object, items []tengo.Object) any {
	if v, ok := c.seen[o]; ok {
		return v
	}
	out := make([]any, len(items))
	c.seen[o] = out
	for i, item := range items {
		out[i] = c.convert(item)
	}
	return out
}

func (c *fromConverter) mapping(o tengo.Object, items map[string]tengo.Object) any {
	if v, ok := c.seen[o]; ok {
		return v
	}
	out := make(map[string]any, len(items))
	c.seen[o] = out
	for k, item := range items {
		out[k] = c.convert(item)
	}
	return out
}

// describe renders an object the way print shows it.
func describe(o tengo.Object) string {
	switch v := o.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Undefined:
		return "undefined"
	default:
		return o.String()
	}
}
