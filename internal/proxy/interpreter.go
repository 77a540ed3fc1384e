package proxy

import (
	"context"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
)

// DecompositionInterpreter replays a module into a new graph while a
// decomposition table is in effect, so the new graph holds the decomposed
// operators.
type DecompositionInterpreter struct {
	module *graph.Module
	table  catalog.Table
	tracer *Tracer
	mode   *DispatchMode
}

// NewDecompositionInterpreter returns an interpreter of m appending to g.
func NewDecompositionInterpreter(m *graph.Module, g *graph.Graph, table catalog.Table) *DecompositionInterpreter {
	tr := NewTracer(g, m)
	return &DecompositionInterpreter{
		module: m,
		table:  table,
		tracer: tr,
		mode:   NewDispatchMode(tr, 1),
	}
}

// Tracer returns the tracer building the new graph.
func (d *DecompositionInterpreter) Tracer() *Tracer {
	return d.tracer
}

// Run interprets the module on args and returns its outputs.
func (d *DecompositionInterpreter) Run(c *dispatch.Context, args ...any) (any, error) {
	if c == nil {
		c = dispatch.New(context.Background())
	}
	defer c.WithDecompositions(d.table)()
	defer c.PushSym(d.mode.sym)()
	defer c.Push(d.mode)()

	tr := d.tracer
	it := graph.NewInterpreter(d.module)
	it.PlaceholderHook = func(n *graph.Node, v any) (any, error) {
		target, _ := n.Target.(string)
		p := graph.NewProxy(tr.CreateNode(graph.Placeholder, target, nil, nil, n.Name), tr.Tracer)
		tr.trackTensorTree(v, p, nil)
		return v, nil
	}
	it.GetAttrHook = func(n *graph.Node, v any) (any, error) {
		target, _ := n.Target.(string)
		tr.Attrs()[target] = v
		p := graph.NewProxy(tr.GetAttr(target), tr.Tracer)
		tr.trackTensorTree(v, p, nil)
		return v, nil
	}
	it.OutputHook = func(_ *graph.Node, v any) (any, error) {
		return v, tr.output(v)
	}
	return it.Run(c, args...)
}

// Module packages the new graph. Call it after Run.
func (d *DecompositionInterpreter) Module() *graph.Module {
	m := d.tracer.Module(d.module.Name)
	m.InSpec = d.module.InSpec
	return m
}
