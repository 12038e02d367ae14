package session

import "context"

// Frame is the per-call state of one evaluation: the combined bindings the
// lookup function resolves against, and the last captured expression value.
// A Frame belongs to a single call and is never shared.
type Frame struct {
	bindings map[string]any
	last     any
	captured bool
}

// NewFrame creates a frame resolving lookups against bindings.
func NewFrame(bindings map[string]any) *Frame {
	if bindings == nil {
		bindings = map[string]any{}
	}
	return &Frame{bindings: bindings}
}

// Lookup resolves a binding by its host key.
func (f *Frame) Lookup(key string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.bindings[key]
	return v, ok
}

// Capture records the raw value of an evaluated expression, replacing any
// earlier capture.
func (f *Frame) Capture(v any) {
	if f == nil {
		return
	}
	f.last = v
	f.captured = true
}

// Last returns the most recently captured value.
func (f *Frame) Last() (any, bool) {
	if f == nil {
		return nil, false
	}
	return f.last, f.captured
}

// Reset forgets the captured value.
func (f *Frame) Reset() {
	if f == nil {
		return
	}
	f.last = nil
	f.captured = false
}

type frameKey struct{}

// WithFrame returns a context carrying f.
func WithFrame(ctx context.Context, f *Frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// FrameFrom returns the frame carried by ctx, or nil.
func FrameFrom(ctx context.Context) *Frame {
	f, _ := ctx.Value(frameKey{}).(*Frame)
	return f
}
