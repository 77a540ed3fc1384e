package graph

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/pytree"
)

// Interpreter executes a module's graph node by node. Hooks may post-process
// the value of placeholder, get_attr and output nodes.
type Interpreter struct {
	PlaceholderHook func(n *Node, v any) (any, error)
	GetAttrHook     func(n *Node, v any) (any, error)
	OutputHook      func(n *Node, v any) (any, error)

	module *Module
	env    map[*Node]any
}

// NewInterpreter returns an interpreter for m.
func NewInterpreter(m *Module) *Interpreter {
	return &Interpreter{module: m}
}

// Run executes the graph. args are flattened into one value per placeholder.
func (it *Interpreter) Run(c *dispatch.Context, args ...any) (any, error) {
	leaves, _ := pytree.Flatten(pytree.Tuple(args))
	placeholders := it.module.Graph.FindNodes(Placeholder)
	if len(leaves) != len(placeholders) {
		return nil, errors.Errorf("graph expects %d inputs, got %d", len(placeholders), len(leaves))
	}

	it.env = make(map[*Node]any, it.module.Graph.Len())
	next := 0
	for _, n := range it.module.Graph.Nodes() {
		var (
			v   any
			err error
		)
		switch n.Op {
		case Placeholder:
			v = leaves[next]
			next++
			if it.PlaceholderHook != nil {
				v, err = it.PlaceholderHook(n, v)
			}
		case GetAttr:
			var ok bool
			if v, ok = it.module.Attr(n.Target.(string)); !ok {
				return nil, errors.Errorf("%s: module has no attribute %q", n, n.Target)
			}
			if it.GetAttrHook != nil {
				v, err = it.GetAttrHook(n, v)
			}
		case CallFunction:
			v, err = it.call(c, n)
		case Output:
			if v, err = it.resolve(n.Args[0]); err != nil {
				return nil, err
			}
			if it.OutputHook != nil {
				v, err = it.OutputHook(n, v)
			}
			return v, err
		default:
			err = errors.Errorf("%s: unknown node kind %q", n, n.Op)
		}
		if err != nil {
			return nil, err
		}
		it.env[n] = v
	}
	return nil, errors.New("graph has no output node")
}

func (it *Interpreter) resolve(a any) (any, error) {
	return pytree.MapOnly(a, func(n *Node) (any, error) {
		v, ok := it.env[n]
		if !ok {
			return nil, errors.Errorf("%s is used before it is computed", n)
		}
		return v, nil
	})
}

func (it *Interpreter) call(c *dispatch.Context, n *Node) (any, error) {
	a, err := it.resolve([]any(n.Args))
	if err != nil {
		return nil, err
	}
	args := a.([]any)
	kw, err := it.resolve(n.Kwargs)
	if err != nil {
		return nil, err
	}
	kwargs := kw.(map[string]any)

	switch target := n.Target.(type) {
	case *catalog.Operator:
		if target.Has(catalog.Symbolic) {
			return c.SymCall(target, args, kwargs)
		}
		return c.Call(target, args, kwargs)
	case *Builtin:
		return target.Fn(args)
	default:
		return nil, errors.Errorf("%s: cannot call %T", n, n.Target)
	}
}
