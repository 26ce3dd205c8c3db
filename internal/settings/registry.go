package settings

import (
	"fmt"
	"sort"
	"sync"
)

// ApplyFunc validates n and applies it to the state of its anchor.
type ApplyFunc func(n *Node) error

// SerializeFunc builds a node describing the current state of its anchor.
type SerializeFunc func() (*Node, error)

type applyKey struct {
	anchor any
	name   string
}

// Registry binds configuration properties to backend logic. Anchors must be
// comparable, typically pointers. At most one apply binding may exist per
// (anchor, name) and one serialize binding per anchor.
type Registry struct {
	mu        sync.Mutex
	apply     map[applyKey]ApplyFunc
	serialize map[any]SerializeFunc
}

func NewRegistry() *Registry {
	return &Registry{
		apply:     map[applyKey]ApplyFunc{},
		serialize: map[any]SerializeFunc{},
	}
}

func (r *Registry) RegisterApply(anchor any, name string, fn ApplyFunc) error {
	if anchor == nil || fn == nil {
		return fmt.Errorf("%w: apply %q", ErrInvalidInput, name)
	}
	if name == "" {
		return fmt.Errorf("%w: empty property name", ErrInvalidName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := applyKey{anchor: anchor, name: name}
	if _, ok := r.apply[k]; ok {
		return fmt.Errorf("%w: apply %q", ErrExists, name)
	}
	r.apply[k] = fn
	return nil
}

func (r *Registry) UnregisterApply(anchor any, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := applyKey{anchor: anchor, name: name}
	if _, ok := r.apply[k]; !ok {
		return fmt.Errorf("%w: apply %q", ErrNotFound, name)
	}
	delete(r.apply, k)
	return nil
}

// Apply runs the apply binding registered for (anchor, name).
func (r *Registry) Apply(anchor any, name string, n *Node) error {
	r.mu.Lock()
	fn, ok := r.apply[applyKey{anchor: anchor, name: name}]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: apply %q", ErrNotFound, name)
	}
	if n == nil {
		return fmt.Errorf("%w: nil node for %q", ErrInvalid, name)
	}
	return fn(n)
}

func (r *Registry) RegisterSerialize(anchor any, fn SerializeFunc) error {
	if anchor == nil || fn == nil {
		return fmt.Errorf("%w: serialize", ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.serialize[anchor]; ok {
		return fmt.Errorf("%w: serialize for %v", ErrExists, anchor)
	}
	r.serialize[anchor] = fn
	return nil
}

func (r *Registry) UnregisterSerialize(anchor any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.serialize[anchor]; !ok {
		return fmt.Errorf("%w: serialize for %v", ErrNotFound, anchor)
	}
	delete(r.serialize, anchor)
	return nil
}

// Serialize runs the serialize binding registered for anchor.
func (r *Registry) Serialize(anchor any) (*Node, error) {
	r.mu.Lock()
	fn, ok := r.serialize[anchor]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: serialize for %v", ErrNotFound, anchor)
	}
	return fn()
}

// Names lists the apply bindings registered for anchor.
func (r *Registry) Names(anchor any) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.apply {
		if k.anchor == anchor {
			out = append(out, k.name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of bindings.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apply) + len(r.serialize)
}
