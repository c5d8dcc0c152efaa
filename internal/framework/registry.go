package framework

import (
	"context"
	"fmt"
)

// Factory builds an Interface implementation for a named adapter. Concrete
// adapters register a Factory at startup; this module ships none (adapters
// are out of scope per spec §1), so a fresh Registry is the "Empty" catalog
// described in core/src/framework/empty.rs — an enum with zero variants, in
// Go terms a map with zero entries.
type Factory func() Interface

// Registry holds candidate adapters in a fixed priority order and resolves
// the first one applicable to a project, or the one the caller named
// explicitly via --framework.
type Registry struct {
	names     []string
	factories map[string]Factory
}

// NewRegistry creates an empty registry. Register adds adapters to it; a
// Registry with no Register calls behaves exactly like the original's
// zero-variant Empty enum: Resolve always reports no adapter found.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds an adapter factory under name, appending it to the priority
// order used by auto-detection. Registering the same name twice replaces the
// earlier factory without changing its priority position.
func (r *Registry) Register(name string, factory Factory) {
	if _, exists := r.factories[name]; !exists {
		r.names = append(r.names, name)
	}
	r.factories[name] = factory
}

// Names returns the registered adapter names in priority order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Resolve selects an adapter for root. If name is non-empty (the
// --framework flag), only that adapter is considered and it is not probed
// for applicability — an explicit choice overrides auto-detection. If name
// is empty or "auto", adapters are probed in registration order and the
// first one reporting Applicable wins.
func (r *Registry) Resolve(ctx context.Context, root, name string) (Interface, error) {
	if name != "" && name != "auto" {
		factory, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown framework %q (registered: %v)", name, r.Names())
		}
		return factory(), nil
	}

	for _, n := range r.names {
		impl := r.factories[n]()
		ok, err := impl.Applicable(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("probing framework %q: %w", n, err)
		}
		if ok {
			return impl, nil
		}
	}

	return nil, fmt.Errorf("no applicable test framework found under %s (registered: %v)", root, r.Names())
}
