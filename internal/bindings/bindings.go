// Package bindings holds the host side of the bridge: named values grouped
// into a global and a local scope, plus the streams an evaluation reads from
// and writes to.
package bindings

import (
	"sort"
	"sync"
)

// Bindings is a mutable name to value mapping. It is safe for concurrent use
// because a single global Bindings is shared by every engine of a factory.
type Bindings struct {
	mu     sync.RWMutex
	values map[string]any
}

// New creates an empty Bindings.
func New() *Bindings {
	return &Bindings{values: make(map[string]any)}
}

// FromMap creates a Bindings holding a copy of m.
func FromMap(m map[string]any) *Bindings {
	b := &Bindings{values: make(map[string]any, len(m))}
	for k, v := range m {
		b.values[k] = v
	}
	return b
}

// Get returns the value bound to name and whether it exists.
// A name bound to nil exists.
func (b *Bindings) Get(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (b *Bindings) Has(name string) bool {
	_, ok := b.Get(name)
	return ok
}

// Put binds name to value, replacing any previous value.
func (b *Bindings) Put(name string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[name] = value
}

// Delete removes name.
func (b *Bindings) Delete(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, name)
}

// Len returns the number of bound names.
func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}

// Names returns the bound names in sorted order.
func (b *Bindings) Names() []string {
	b.mu.RLock()
	names := make([]string, 0, len(b.values))
	for k := range b.values {
		names = append(names, k)
	}
	b.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the current contents.
func (b *Bindings) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := make(map[string]any, len(b.values))
	for k, v := range b.values {
		m[k] = v
	}
	return m
}

// Combine merges global and local into a fresh map, local entries winning.
// A nil global contributes nothing.
func Combine(global, local *Bindings) map[string]any {
	combined := make(map[string]any)
	if global != nil {
		for k, v := range global.Snapshot() {
			combined[k] = v
		}
	}
	if local != nil {
		for k, v := range local.Snapshot() {
			combined[k] = v
		}
	}
	return combined
}
