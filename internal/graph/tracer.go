package graph

import (
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/slot"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// ErrUnsupportedArg is returned by CreateArg for values a graph cannot hold.
var ErrUnsupportedArg = errors.New("unsupported graph argument")

// NamedParameter is a parameter registered on a module under a dotted name.
type NamedParameter struct {
	Name  string
	Value *tensor.Tensor
}

// ParameterSource is implemented by trace roots owning parameters.
type ParameterSource interface {
	NamedParameters() []NamedParameter
}

// Tracer appends nodes to a graph and interns the constants they reference
// as module attributes.
type Tracer struct {
	// ID identifies the tracer; it keys the tracer's slot table.
	ID uuid.UUID
	// Log receives one V(4) line per emitted node.
	Log logr.Logger
	// OnNode, when set, is called for every emitted node.
	OnNode func(*Node)

	graph       *Graph
	root        ParameterSource
	attrs       map[string]any
	tensorAttrs map[slot.ID]string
}

// NewTracer returns a tracer appending to g. root may be nil.
func NewTracer(g *Graph, root ParameterSource) *Tracer {
	return &Tracer{
		ID:          uuid.New(),
		Log:         logr.Discard(),
		graph:       g,
		root:        root,
		attrs:       make(map[string]any),
		tensorAttrs: make(map[slot.ID]string),
	}
}

// Graph returns the graph being built.
func (t *Tracer) Graph() *Graph {
	return t.graph
}

// Attrs returns the attributes interned so far.
func (t *Tracer) Attrs() map[string]any {
	return t.attrs
}

func (t *Tracer) String() string {
	return "Tracer(" + t.ID.String() + ")"
}

// CreateNode appends a node whose arguments are already graph arguments.
func (t *Tracer) CreateNode(op Op, target any, args []any, kwargs map[string]any, name string) *Node {
	var n *Node
	switch op {
	case CallFunction:
		n = t.graph.CallFunction(target, args, kwargs, name)
	default:
		n = t.graph.CreateNode(op, target, args, kwargs, name)
	}
	t.Log.V(4).Info("emit node", "name", n.Name, "op", n.Op, "target", n.TargetName())
	if t.OnNode != nil {
		t.OnNode(n)
	}
	return n
}

// CreateProxy converts args with CreateArg, appends a node and returns its
// proxy.
func (t *Tracer) CreateProxy(op Op, target any, args []any, kwargs map[string]any, name string) (*Proxy, error) {
	nargs, err := t.CreateArg([]any(args))
	if err != nil {
		return nil, err
	}
	nkwargs := map[string]any{}
	if kwargs != nil {
		v, err := t.CreateArg(kwargs)
		if err != nil {
			return nil, err
		}
		nkwargs = v.(map[string]any)
	}
	n := t.CreateNode(op, target, nargs.([]any), nkwargs, name)
	return &Proxy{node: n, tracer: t}, nil
}

// CreateArg converts a value into something a node can hold. Proxies become
// their nodes, parameters and untracked tensors become get_attr nodes, and
// symbolic scalars must be statically known.
func (t *Tracer) CreateArg(a any) (any, error) {
	switch v := a.(type) {
	case *Proxy:
		if v.tracer != t {
			return nil, errors.Errorf("proxy %s belongs to %s, not %s", v, v.tracer, t)
		}
		return v.node, nil
	case *Node:
		return v, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			c, err := t.CreateArg(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case pytree.Tuple:
		out, err := t.CreateArg([]any(v))
		if err != nil {
			return nil, err
		}
		return pytree.Tuple(out.([]any)), nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			c, err := t.CreateArg(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case *tensor.Tensor:
		if v.IsParameter() {
			return t.GetAttr(t.paramName(v)), nil
		}
		return t.GetAttr(t.tensorConstantName(v)), nil
	case *symbolic.SymInt:
		c, ok := v.Constant()
		if !ok {
			return nil, errors.Errorf("%v is not tracked and has no constant value", v)
		}
		return c, nil
	case *symbolic.SymFloat:
		c, ok := v.Constant()
		if !ok {
			return nil, errors.Errorf("%v is not tracked and has no constant value", v)
		}
		return c, nil
	case nil, bool, int, int64, float64, string, tensor.DataType, tensor.Device:
		return v, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedArg, "%T", a)
	}
}

// GetAttr appends a get_attr node for an interned attribute.
func (t *Tracer) GetAttr(name string) *Node {
	return t.CreateNode(GetAttr, name, nil, nil, attrNodeName(name))
}

// paramName finds p among the root's parameters by identity, or interns it
// as _param_constant<N>.
func (t *Tracer) paramName(p *tensor.Tensor) string {
	if t.root != nil {
		for _, np := range t.root.NamedParameters() {
			if np.Value == p {
				t.attrs[np.Name] = p
				return np.Name
			}
		}
	}
	if name, ok := t.tensorAttrs[p.SlotID()]; ok {
		return name
	}
	name := t.freshAttrName("_param_constant")
	t.attrs[name] = p
	t.tensorAttrs[p.SlotID()] = name
	return name
}

func (t *Tracer) tensorConstantName(v *tensor.Tensor) string {
	if name, ok := t.tensorAttrs[v.SlotID()]; ok {
		return name
	}
	name := t.freshAttrName("_tensor_constant")
	t.attrs[name] = v
	t.tensorAttrs[v.SlotID()] = name
	return name
}

func (t *Tracer) freshAttrName(prefix string) string {
	taken := make(map[string]bool)
	if t.root != nil {
		for _, np := range t.root.NamedParameters() {
			taken[np.Name] = true
		}
	}
	for i := 0; ; i++ {
		name := prefix + strconv.Itoa(i)
		if _, ok := t.attrs[name]; !ok && !taken[name] {
			return name
		}
	}
}

// CallModule runs a sub-module's forward pass. Sub-modules are inlined.
func (t *Tracer) CallModule(m any, forward func() (any, error)) (any, error) {
	t.Log.V(5).Info("inline module", "module", fmt.Sprintf("%T", m))
	return forward()
}

// Module packages the graph with the attributes it reads.
func (t *Tracer) Module(name string) *Module {
	attrs := make(map[string]any)
	for _, n := range t.graph.FindNodes(GetAttr) {
		target := n.Target.(string)
		if v, ok := t.attrs[target]; ok {
			attrs[target] = v
		}
	}
	return NewModule(name, t.graph, attrs)
}

// Proxy is a handle on a node under construction: the node plus the tracer
// owning it. Proxies are immutable.
type Proxy struct {
	node   *Node
	tracer *Tracer
}

// NewProxy wraps n, which must belong to tr's graph.
func NewProxy(n *Node, tr *Tracer) *Proxy {
	return &Proxy{node: n, tracer: tr}
}

// Node returns the node.
func (p *Proxy) Node() *Node {
	return p.node
}

// Tracer returns the owning tracer.
func (p *Proxy) Tracer() *Tracer {
	return p.tracer
}

// Index returns a proxy for element i of a list-valued node.
func (p *Proxy) Index(i int) *Proxy {
	n := p.tracer.CreateNode(CallFunction, GetItem, []any{p.node, i}, nil, "getitem")
	return &Proxy{node: n, tracer: p.tracer}
}

func (p *Proxy) String() string {
	return "Proxy(" + p.node.Name + ")"
}

// ModuleCaller is implemented by modes that decide how sub-modules are
// traced.
type ModuleCaller interface {
	CallModule(m any, forward func() (any, error)) (any, error)
}

// CallModule runs forward through the innermost active mode implementing
// ModuleCaller, or directly when there is none.
func CallModule(c *dispatch.Context, m any, forward func() (any, error)) (any, error) {
	for _, mode := range c.Modes() {
		if mc, ok := mode.(ModuleCaller); ok {
			return mc.CallModule(m, forward)
		}
	}
	return forward()
}
