package adapter

import (
	"fmt"
	"sort"
)

// Registry maps gateway names to adapters.
type Registry struct {
	adapters map[string]GatewayAdapter
}

// NewRegistry registers the given adapters; duplicate names panic.
func NewRegistry(adapters ...GatewayAdapter) *Registry {
	r := &Registry{adapters: make(map[string]GatewayAdapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			panic("adapter cannot be nil")
		}
		if _, dup := r.adapters[a.GetName()]; dup {
			panic(fmt.Sprintf("adapter %q registered twice", a.GetName()))
		}
		r.adapters[a.GetName()] = a
	}
	return r
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (GatewayAdapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered gateway names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
