package proxy

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/symbolic"
)

// SymDispatchMode records arithmetic on symbolic scalars.
type SymDispatchMode struct {
	tracer        *Tracer
	enableTracing bool
}

// NewSymDispatchMode creates an enabled symbolic mode for t.
func NewSymDispatchMode(t *Tracer) *SymDispatchMode {
	return &SymDispatchMode{tracer: t, enableTracing: true}
}

// Enabled reports whether operations are recorded.
func (s *SymDispatchMode) Enabled() bool {
	return s.enableTracing
}

// Enable sets whether operations are recorded until the returned func is
// called. When disabled, results must be tracked by whoever computes them.
func (s *SymDispatchMode) Enable(b bool) (restore func()) {
	prev := s.enableTracing
	s.enableTracing = b
	return func() { s.enableTracing = prev }
}

// SymDispatch implements dispatch.SymMode.
func (s *SymDispatchMode) SymDispatch(c *dispatch.Context, op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	if !s.enableTracing || !pytree.AnyOnly(pytree.Tuple{args, kwargs}, isSymbolicScalar) {
		return c.SymCall(op, args, kwargs)
	}

	nodes, err := pytree.Map(pytree.Tuple{args, kwargs}, func(l any) (any, error) {
		if !isSymbolicScalar(l) {
			return l, nil
		}
		v, err := s.tracer.fetchSymProxy(l)
		if err != nil {
			return nil, err
		}
		if p, ok := v.(*graph.Proxy); ok {
			return p.Node(), nil
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	nargs, nkwargs := splitArgs(nodes)

	n := s.tracer.CreateNode(graph.CallFunction, op, nargs, nkwargs, "")
	p := graph.NewProxy(n, s.tracer.Tracer)

	out, err := c.SymCall(op, args, kwargs)
	if err != nil {
		return nil, err
	}
	if !isSymbolicScalar(out) {
		return nil, errors.Wrapf(ErrSymbolicMismatch, "%s%v = %v (%T)", op, args, out, out)
	}
	setMeta(p, out)
	switch v := out.(type) {
	case *symbolic.SymInt:
		s.tracer.slots.Set(v, Slot{Proxy: p})
	case *symbolic.SymFloat:
		s.tracer.slots.Set(v, Slot{Proxy: p})
	}
	return out, nil
}
