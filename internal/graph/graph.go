// Package graph holds the dataflow graphs produced by tracing: nodes, the
// tracer that emits them, graph modules and an interpreter replaying them.
package graph

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/pytree"
)

// Op is the kind of a node.
type Op string

// Node kinds.
const (
	Placeholder  Op = "placeholder"
	GetAttr      Op = "get_attr"
	CallFunction Op = "call_function"
	Output       Op = "output"
)

// Meta keys.
const (
	// MetaVal holds the fake tensor or symbolic scalar a node produced.
	MetaVal = "val"
	// MetaTensor holds the tensor.Meta summary of a real tensor result.
	MetaTensor = "tensor_meta"
)

// Node is one recorded operation.
//
// Target is the input name for placeholders, the attribute name for get_attr
// nodes and a *catalog.Operator or *Builtin for call_function nodes. Args and
// Kwargs may nest []any, pytree.Tuple and map[string]any; references to other
// nodes are *Node values.
type Node struct {
	Name   string
	Op     Op
	Target any
	Args   []any
	Kwargs map[string]any
	Meta   map[string]any

	graph *Graph
}

// Graph returns the graph owning n.
func (n *Node) Graph() *Graph {
	return n.graph
}

// TargetName returns the printable target.
func (n *Node) TargetName() string {
	switch t := n.Target.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Inputs returns the nodes n reads, in argument order.
func (n *Node) Inputs() []*Node {
	leaves, _ := pytree.Flatten(pytree.Tuple{[]any(n.Args), n.Kwargs})
	var out []*Node
	for _, l := range leaves {
		if in, ok := l.(*Node); ok {
			out = append(out, in)
		}
	}
	return out
}

func (n *Node) String() string {
	return "%" + n.Name
}

// Graph is an ordered list of nodes with unique names.
type Graph struct {
	nodes []*Node
	names map[string]bool
	next  map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		names: make(map[string]bool),
		next:  make(map[string]int),
	}
}

// Nodes returns the nodes in emission order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// FindNodes returns the nodes of the given kind.
func (g *Graph) FindNodes(op Op) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Op == op {
			out = append(out, n)
		}
	}
	return out
}

// OutputNode returns the output node, nil before Output was called.
func (g *Graph) OutputNode() *Node {
	for i := len(g.nodes) - 1; i >= 0; i-- {
		if g.nodes[i].Op == Output {
			return g.nodes[i]
		}
	}
	return nil
}

// Users returns the nodes reading n.
func (g *Graph) Users(n *Node) []*Node {
	var out []*Node
	for _, u := range g.nodes {
		for _, in := range u.Inputs() {
			if in == n {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// CreateNode appends a node. name is a base name made unique within g.
func (g *Graph) CreateNode(op Op, target any, args []any, kwargs map[string]any, name string) *Node {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	n := &Node{
		Name:   g.uniqueName(name),
		Op:     op,
		Target: target,
		Args:   args,
		Kwargs: kwargs,
		Meta:   make(map[string]any),
		graph:  g,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// Placeholder appends an input node.
func (g *Graph) Placeholder(name string) *Node {
	return g.CreateNode(Placeholder, name, nil, nil, name)
}

// GetAttr appends a node reading a module attribute.
func (g *Graph) GetAttr(name string) *Node {
	return g.CreateNode(GetAttr, name, nil, nil, attrNodeName(name))
}

// CallFunction appends an operator call. An empty name derives one from
// the target.
func (g *Graph) CallFunction(target any, args []any, kwargs map[string]any, name string) *Node {
	if name == "" {
		name = targetToName(target)
	}
	return g.CreateNode(CallFunction, target, args, kwargs, name)
}

// Output appends the output node returning result.
func (g *Graph) Output(result any) *Node {
	return g.CreateNode(Output, "output", []any{result}, nil, "output")
}

func attrNodeName(target string) string {
	return strings.ReplaceAll(target, ".", "_")
}

func targetToName(target any) string {
	var s string
	switch t := target.(type) {
	case interface{ OpName() string }:
		s = t.OpName()
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// uniqueName returns base, or base_N with the first unused N.
func (g *Graph) uniqueName(base string) string {
	if base == "" {
		base = "_node"
	}
	name := base
	for g.names[name] {
		g.next[base]++
		name = base + "_" + strconv.Itoa(g.next[base])
	}
	g.names[name] = true
	return name
}

// Lint checks that every node only reads nodes of this graph emitted before
// it, and that the graph ends with exactly one output node.
func (g *Graph) Lint() error {
	seen := make(map[*Node]bool, len(g.nodes))
	outputs := 0
	for i, n := range g.nodes {
		if n.graph != g {
			return errors.Errorf("graph: node %s belongs to another graph", n)
		}
		for _, in := range n.Inputs() {
			if !seen[in] {
				return errors.Errorf("graph: %s uses %s before it is defined", n, in)
			}
		}
		if n.Op == Output {
			outputs++
			if i != len(g.nodes)-1 {
				return errors.Errorf("graph: output node %s is not last", n)
			}
		}
		seen[n] = true
	}
	if outputs != 1 {
		return errors.Errorf("graph: expected one output node, found %d", outputs)
	}
	return nil
}

// String prints the graph one node per line.
func (g *Graph) String() string {
	var b strings.Builder
	b.WriteString("graph():\n")
	for _, n := range g.nodes {
		if n.Op == Output {
			fmt.Fprintf(&b, "    return %s\n", formatArg(n.Args[0]))
			continue
		}
		fmt.Fprintf(&b, "    %s : [#users=%d] = %s[target=%s]", n, len(g.Users(n)), n.Op, n.TargetName())
		if n.Op == CallFunction {
			fmt.Fprintf(&b, "(args = %s, kwargs = %s)", formatArg(pytree.Tuple(n.Args)), formatArg(n.Kwargs))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatArg(a any) string {
	switch v := a.(type) {
	case *Node:
		return v.String()
	case pytree.Tuple:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatArg(e)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = formatArg(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatArg(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}
