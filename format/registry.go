package format

import (
	"fmt"
	"slices"
	"sync"
)

// Func transforms one resolved value. Formatters must be pure.
type Func func(v any) (any, error)

// Factory builds a formatter from the arguments of a declaration.
type Factory func(args ...string) (Func, error)

// Registry holds named formatters.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in formatters.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	registerBuiltins(r)
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process wide registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// Register adds or replaces a formatter factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// RegisterFunc adds a formatter that takes no arguments.
func (r *Registry) RegisterFunc(name string, fn Func) {
	r.Register(name, func(args ...string) (Func, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("formatter %s takes no arguments", name)
		}
		return fn, nil
	})
}

// Lookup returns the formatter called name, built with args.
func (r *Registry) Lookup(name string, args ...string) (Func, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown formatter %q", name)
	}
	return f(args...)
}

// Names returns the registered formatter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
