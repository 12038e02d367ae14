package session

import "reflect"

// SameValue reports whether a and b are the same host value: identical
// references for maps, slices, pointers, funcs and channels, equality for
// comparable values. It never panics.
func SameValue(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Reconcile returns prev updated to the contents of next when both are
// exported containers of the same shape, so a host that kept prev sees
// what the script changed. References from next to itself are rewritten
// to prev. Otherwise it returns next.
func Reconcile(prev, next any) any {
	if SameValue(prev, next) {
		return prev
	}
	switch p := prev.(type) {
	case map[string]any:
		n, ok := next.(map[string]any)
		if !ok {
			return next
		}
		clear(p)
		for k, v := range n {
			p[k] = selfRef(v, n, p)
		}
		return p
	case []any:
		n, ok := next.([]any)
		if !ok || len(n) != len(p) {
			return next
		}
		for i, v := range n {
			p[i] = selfRef(v, n, p)
		}
		return p
	}
	return next
}

// selfRef returns prev when v is next itself, keeping a container that
// holds itself pointing at the refreshed copy.
func selfRef(v, next, prev any) any {
	if SameValue(v, next) {
		return prev
	}
	return v
}
