package proxy

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/slot"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Slot is what a tracer remembers about a tracked value: its handle and,
// for small tensors known at trace time, their constant value. A symbolic
// size read off a tracked tensor has no node until something uses it; Handle
// emits it then.
type Slot struct {
	Proxy    *graph.Proxy
	Constant *tensor.Tensor

	lazy *lazyProxy
}

// Handle returns the slot's proxy, emitting a deferred node on first use.
func (s Slot) Handle() *graph.Proxy {
	if s.Proxy == nil && s.lazy != nil {
		return s.lazy.force()
	}
	return s.Proxy
}

type lazyProxy struct {
	emit  func() *graph.Proxy
	proxy *graph.Proxy
}

func (l *lazyProxy) force() *graph.Proxy {
	if l.proxy == nil {
		l.proxy = l.emit()
		l.emit = nil
	}
	return l.proxy
}

// Tracer is a graph tracer with a slot table associating runtime values
// with their proxies.
type Tracer struct {
	*graph.Tracer

	slots *slot.Table[Slot]
}

// NewTracer returns a tracer appending to g. root may be nil.
func NewTracer(g *graph.Graph, root graph.ParameterSource) *Tracer {
	gt := graph.NewTracer(g, root)
	return &Tracer{
		Tracer: gt,
		slots:  slot.NewTable[Slot](gt.ID),
	}
}

// Slots returns the tracer's slot table.
func (t *Tracer) Slots() *slot.Table[Slot] {
	return t.slots
}

// Proxy returns the proxy tracking v.
func (t *Tracer) Proxy(v slot.Value) (*graph.Proxy, error) {
	s, err := t.slots.Lookup(v)
	if err != nil {
		return nil, err
	}
	return s.Handle(), nil
}

// Close forgets every association made by the tracer.
func (t *Tracer) Close() {
	t.slots.Close()
}

// GetProxy returns the proxy of v when exactly one live tracer tracks it.
func GetProxy(v slot.Value) (*graph.Proxy, error) {
	s, err := slot.Any[Slot](v)
	if err != nil {
		return nil, err
	}
	return s.Handle(), nil
}

// HasProxy reports whether exactly one live tracer tracks v.
func HasProxy(v slot.Value) bool {
	_, err := GetProxy(v)
	return err == nil
}

func setMeta(p *graph.Proxy, v any) {
	switch x := v.(type) {
	case *tensor.Tensor:
		if x.IsFake() {
			p.Node().Meta[graph.MetaVal] = x
		}
		p.Node().Meta[graph.MetaTensor] = x.TensorMeta()
	case *symbolic.SymInt, *symbolic.SymFloat:
		p.Node().Meta[graph.MetaVal] = x
	}
}

// trackTensor associates x with p. Symbolic dimensions not yet known to the
// tracer are bound to a sym_size of p, emitted when first read.
func (t *Tracer) trackTensor(x *tensor.Tensor, p *graph.Proxy, constant *tensor.Tensor) {
	for i, s := range x.TensorMeta().Sizes() {
		if !s.IsSymbolic() || t.slots.Has(s.Sym()) {
			continue
		}
		if _, known := s.Sym().Constant(); known {
			continue
		}
		sym, dim := s.Sym(), i
		t.slots.Set(sym, Slot{lazy: &lazyProxy{emit: func() *graph.Proxy {
			n := t.CreateNode(graph.CallFunction, catalog.SymSize, []any{p.Node(), dim}, nil, "sym_size")
			sp := graph.NewProxy(n, t.Tracer)
			setMeta(sp, sym)
			return sp
		}}})
	}
	t.slots.Set(x, Slot{Proxy: p, Constant: constant})
}

// trackTensorTree associates the tensors and symbolic scalars of out with
// proxies derived from p. Lists and tuples are indexed element-wise.
func (t *Tracer) trackTensorTree(out any, p *graph.Proxy, constant any) {
	switch x := out.(type) {
	case *tensor.Tensor:
		c, _ := constant.(*tensor.Tensor)
		t.trackTensor(x, p, c)
		setMeta(p, x)
	case *symbolic.SymInt:
		t.slots.Set(x, Slot{Proxy: p})
		setMeta(p, x)
	case *symbolic.SymFloat:
		t.slots.Set(x, Slot{Proxy: p})
		setMeta(p, x)
	case []any:
		for i, e := range x {
			t.trackTensorTree(e, p.Index(i), constantAt(constant, i))
		}
	case pytree.Tuple:
		for i, e := range x {
			t.trackTensorTree(e, p.Index(i), constantAt(constant, i))
		}
	}
}

func constantAt(constant any, idx int) any {
	switch c := constant.(type) {
	case []any:
		if idx < len(c) {
			return c[idx]
		}
	case pytree.Tuple:
		if idx < len(c) {
			return c[idx]
		}
	}
	return nil
}

// fetchSymProxy returns the constant of a statically known symbolic scalar,
// or its proxy. Non-constant symbolic scalars must be tracked.
func (t *Tracer) fetchSymProxy(v any) (any, error) {
	switch s := v.(type) {
	case *symbolic.SymInt:
		if c, ok := s.Constant(); ok {
			return c, nil
		}
		p, err := t.Proxy(s)
		return p, errors.Wrapf(err, "symbolic size %s", s.Expr())
	case *symbolic.SymFloat:
		if c, ok := s.Constant(); ok {
			return c, nil
		}
		p, err := t.Proxy(s)
		return p, errors.Wrapf(err, "symbolic float %s", s.Expr())
	default:
		return v, nil
	}
}
