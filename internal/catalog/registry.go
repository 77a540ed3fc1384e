package catalog

import (
	"sort"
	"sync"
)

// Registry maps operator names to operators.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operator
}

// NewRegistry creates a registry with all built-in operators.
func NewRegistry() *Registry {
	r := &Registry{
		ops: make(map[string]*Operator),
	}

	r.registerMathOps()
	r.registerShapeOps()
	r.registerCreationOps()
	r.registerCompositeOps()
	r.registerSymOps()

	return r
}

// Default is the registry of built-in operators.
var Default = NewRegistry()

// Register adds an operator, replacing one with the same name.
func (r *Registry) Register(op *Operator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Name] = op
}

// Get returns the operator registered under name.
func (r *Registry) Get(name string) (*Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
