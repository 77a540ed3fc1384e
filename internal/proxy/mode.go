package proxy

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/metrics"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/slot"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// DispatchMode records every operator call it intercepts as a graph node and
// associates the results with the node's proxy.
type DispatchMode struct {
	tracer        *Tracer
	sym           *SymDispatchMode
	enableTracing bool
	limit         int
	metrics       bool
}

// NewDispatchMode creates a recording mode for t. Results with at most limit
// elements computed only from constants carry their constant value.
func NewDispatchMode(t *Tracer, limit int) *DispatchMode {
	return &DispatchMode{
		tracer:        t,
		sym:           NewSymDispatchMode(t),
		enableTracing: true,
		limit:         limit,
	}
}

// Tracer returns the tracer receiving the nodes.
func (m *DispatchMode) Tracer() *Tracer {
	return m.tracer
}

// SymMode returns the companion symbolic scalar mode.
func (m *DispatchMode) SymMode() *SymDispatchMode {
	return m.sym
}

// Tracing reports whether calls are recorded.
func (m *DispatchMode) Tracing() bool {
	return m.enableTracing
}

// EnableTracing sets whether calls are recorded until the returned func is
// called.
func (m *DispatchMode) EnableTracing(b bool) (restore func()) {
	prev := m.enableTracing
	m.enableTracing = b
	return func() { m.enableTracing = prev }
}

// restore re-activates the mode, and the symbolic mode with it, so that
// operators called by a decomposition are recorded individually.
func (m *DispatchMode) restore(c *dispatch.Context) func() {
	symRestore := m.sym.Enable(true)
	modeRestore := c.Restore(m)
	return func() {
		modeRestore()
		symRestore()
	}
}

// Dispatch implements dispatch.Mode. Symbolic scalar operations performed
// while handling the call are not recorded.
func (m *DispatchMode) Dispatch(c *dispatch.Context, op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	defer m.sym.Enable(false)()

	if !m.enableTracing {
		return c.Call(op, args, kwargs)
	}

	if op.Has(catalog.SymbolicShape) {
		defer m.restore(c)()
		if op.Decomposition != nil {
			out, err := op.Decomposition(c, args, kwargs)
			if !errors.Is(err, dispatch.ErrNotImplemented) {
				return out, err
			}
		}
		return op.Run(args, kwargs)
	}

	if op.Has(catalog.Metadata) {
		return c.Call(op, args, kwargs)
	}

	out, err := m.proxyCall(c, op, args, kwargs)
	if err != nil {
		return nil, err
	}

	var untracked *tensor.Tensor
	pytree.AnyOnly(out, func(t *tensor.Tensor) bool {
		if m.tracer.slots.Has(t) {
			return false
		}
		untracked = t
		return true
	})
	if untracked != nil {
		return nil, errors.Wrapf(ErrConstantBakedIn, "%s returned %v", op, untracked)
	}
	return out, nil
}

// CallModule implements graph.ModuleCaller.
func (m *DispatchMode) CallModule(mod any, forward func() (any, error)) (any, error) {
	return m.tracer.CallModule(mod, forward)
}

func (m *DispatchMode) canHandle(l tensor.Like) bool {
	if _, ok := l.(*tensor.Tensor); ok {
		return true
	}
	return m.tracer.slots.Has(l)
}

func (m *DispatchMode) decompose(c *dispatch.Context, op *catalog.Operator, d catalog.Decomposition, source string, args []any, kwargs map[string]any) (any, error) {
	defer m.restore(c)()
	out, err := d(c, args, kwargs)
	if err == nil {
		m.tracer.Log.V(5).Info("decomposed", "op", op.String(), "source", source)
		if m.metrics {
			metrics.DecompositionsApplied.WithLabelValues(op.Name, source).Inc()
		}
	}
	return out, err
}

func (m *DispatchMode) proxyCall(c *dispatch.Context, op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	tr := m.tracer
	tree := pytree.Tuple{args, kwargs}

	if !pytree.AllOnly(tree, m.canHandle) {
		return nil, dispatch.ErrNotImplemented
	}

	if d, ok := c.Decompositions()[op]; ok {
		out, err := m.decompose(c, op, d, "table", args, kwargs)
		if !errors.Is(err, dispatch.ErrNotImplemented) {
			return out, err
		}
	}

	// size is answered by the kernel, never decomposed.
	if op != catalog.Size && op.Decomposition != nil {
		out, err := m.decompose(c, op, op.Decomposition, "builtin", args, kwargs)
		if !errors.Is(err, dispatch.ErrNotImplemented) {
			return out, err
		}
	}

	slotted, err := pytree.MapOnly(tree, func(l tensor.Like) (any, error) {
		return slot.LookupOr(tr.slots, l, any(l), func(s Slot) any { return s }), nil
	})
	if err != nil {
		return nil, err
	}

	allConstant := pytree.AllOnly(slotted, func(s Slot) bool { return s.Constant != nil }) &&
		!pytree.AnyOnly(tree, isSymbolicScalar)
	anyConstant := pytree.AnyOnly(slotted, func(s Slot) bool { return s.Constant != nil })

	constants := func() ([]any, map[string]any, error) {
		v, err := pytree.MapOnly(slotted, func(s Slot) (any, error) { return s.Constant, nil })
		if err != nil {
			return nil, nil, err
		}
		a, k := splitArgs(v)
		return a, k, nil
	}

	if op.Has(catalog.DataDependentOutput) {
		if !allConstant {
			return nil, errors.Wrapf(ErrDataDependent, "%s", op)
		}
		cargs, ckwargs, err := constants()
		if err != nil {
			return nil, err
		}
		return c.Direct(op, cargs, ckwargs)
	}

	proxied, err := pytree.Map(slotted, func(l any) (any, error) {
		switch v := l.(type) {
		case Slot:
			return v.Handle(), nil
		case *symbolic.SymInt, *symbolic.SymFloat:
			return tr.fetchSymProxy(v)
		default:
			return l, nil
		}
	})
	if err != nil {
		return nil, err
	}
	pargs, pkwargs := splitArgs(proxied)

	// lift_fresh would alias an interned constant; record the copy instead.
	target := op
	if op == catalog.LiftFresh {
		target = catalog.LiftFreshCopy
	}

	p, err := tr.CreateProxy(graph.CallFunction, target, pargs, pkwargs, "")
	if err != nil {
		return nil, errors.Wrapf(err, "record %s", target)
	}

	if target.Has(catalog.Inplace) && len(args) > 0 {
		switch first := args[0].(type) {
		case *tensor.Tensor:
			tr.slots.Set(first, Slot{Proxy: p})
		case []any:
			for i, e := range first {
				if x, ok := e.(*tensor.Tensor); ok {
					tr.slots.Set(x, Slot{Proxy: p.Index(0).Index(i)})
				}
			}
		}
	}

	out, err := c.Call(target, args, kwargs)
	if err != nil {
		return nil, err
	}

	var constant any
	switch {
	case target == catalog.LiftFreshCopy && withinLimit(out, m.limit):
		if x, ok := args[0].(*tensor.Tensor); ok {
			constant = x.Clone()
		}
	case !target.Has(catalog.NondeterministicSeeded) && allConstant && anyConstant && withinLimit(out, m.limit):
		cargs, ckwargs, err := constants()
		if err != nil {
			return nil, err
		}
		if constant, err = c.Direct(target, cargs, ckwargs); err != nil {
			return nil, errors.Wrapf(err, "propagate constant through %s", target)
		}
	}
	if constant != nil && m.metrics {
		metrics.ConstantsPropagated.Inc()
	}

	tr.trackTensorTree(out, p, constant)
	return out, nil
}

func isSymbolicScalar(v any) bool {
	switch v.(type) {
	case *symbolic.SymInt, *symbolic.SymFloat:
		return true
	default:
		return false
	}
}

func withinLimit(out any, limit int) bool {
	return pytree.AllOnly(out, func(t *tensor.Tensor) bool { return t.NumElements() <= limit })
}

// splitArgs undoes pytree.Tuple{args, kwargs}.
func splitArgs(v any) ([]any, map[string]any) {
	t, _ := v.(pytree.Tuple)
	if len(t) != 2 {
		return nil, nil
	}
	args, _ := t[0].([]any)
	kwargs, _ := t[1].(map[string]any)
	return args, kwargs
}
