package graph

import (
	"sort"
	"strings"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Module is a graph together with the attributes its get_attr nodes read.
type Module struct {
	Name  string
	Graph *Graph
	// InSpec is the structure of the inputs, nil for flat inputs.
	InSpec *pytree.Spec

	attrs map[string]any
}

// NewModule creates a module. attrs may be nil.
func NewModule(name string, g *Graph, attrs map[string]any) *Module {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Module{Name: name, Graph: g, attrs: attrs}
}

// Attr returns an attribute.
func (m *Module) Attr(name string) (any, bool) {
	v, ok := m.attrs[name]
	return v, ok
}

// SetAttr sets an attribute.
func (m *Module) SetAttr(name string, v any) {
	m.attrs[name] = v
}

// AttrNames returns the attribute names, sorted.
func (m *Module) AttrNames() []string {
	names := make([]string, 0, len(m.attrs))
	for name := range m.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedParameters returns the parameter attributes, sorted by name. A traced
// module can therefore be the root of another trace.
func (m *Module) NamedParameters() []NamedParameter {
	var out []NamedParameter
	for _, name := range m.AttrNames() {
		if t, ok := m.attrs[name].(*tensor.Tensor); ok && t.IsParameter() {
			out = append(out, NamedParameter{Name: name, Value: t})
		}
	}
	return out
}

// Run replays the graph on args through c.
func (m *Module) Run(c *dispatch.Context, args ...any) (any, error) {
	return NewInterpreter(m).Run(c, args...)
}

func (m *Module) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString(" ")
	b.WriteString(m.Graph.String())
	return b.String()
}
