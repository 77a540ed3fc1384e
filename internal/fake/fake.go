// Package fake implements a dispatch mode that computes with metadata-only
// tensors: shapes, dtypes and devices flow through the operators' meta
// functions and no storage is ever allocated.
package fake

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/slot"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// ErrForeignFake is returned when a fake tensor from another session reaches
// a mode.
var ErrForeignFake = errors.New("fake tensor belongs to another fake mode")

// Mode is a fake tensor session. Fake tensors it creates are owned by it.
type Mode struct {
	env  *symbolic.ShapeEnv
	memo map[slot.ID]*tensor.Tensor
}

// Option configures a Mode.
type Option func(*Mode)

// WithShapeEnv attaches a shape environment for symbolic inputs.
func WithShapeEnv(env *symbolic.ShapeEnv) Option {
	return func(m *Mode) {
		m.env = env
	}
}

// New creates a fake tensor session.
func New(opts ...Option) *Mode {
	m := &Mode{memo: make(map[slot.ID]*tensor.Tensor)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShapeEnv returns the attached shape environment, nil if none.
func (m *Mode) ShapeEnv() *symbolic.ShapeEnv {
	return m.env
}

// Owns reports whether t is a fake tensor of this session.
func (m *Mode) Owns(t *tensor.Tensor) bool {
	return t.IsFake() && t.FakeOwner() == m
}

// FromTensor returns the fake counterpart of t. Converting the same real
// tensor twice returns the same fake tensor.
func (m *Mode) FromTensor(t *tensor.Tensor) (*tensor.Tensor, error) {
	if t.IsFake() {
		if t.FakeOwner() != m {
			return nil, errors.Wrapf(ErrForeignFake, "%v", t)
		}
		return t, nil
	}
	if f, ok := m.memo[t.SlotID()]; ok {
		return f, nil
	}
	meta := t.TensorMeta()
	f := tensor.NewFake(meta, m)
	m.memo[t.SlotID()] = f
	return f, nil
}

// FromTensorSymbolic returns a fake counterpart of t whose sizes are the
// given symbols.
func (m *Mode) FromTensorSymbolic(t *tensor.Tensor, sizes []*symbolic.SymInt) (*tensor.Tensor, error) {
	if len(sizes) != t.Dim() {
		return nil, errors.Errorf("fake: %d symbolic sizes for a %dD tensor", len(sizes), t.Dim())
	}
	syms := make([]symbolic.Int, len(sizes))
	for i, s := range sizes {
		syms[i] = symbolic.Symbolic(s)
	}
	meta := tensor.MetaFromSizes(t.DType(), t.Device(), syms)
	return tensor.NewFake(meta, m), nil
}

// Dispatch runs the meta function of op on fake versions of the arguments.
// Tensor-like values other than *tensor.Tensor are declined.
func (m *Mode) Dispatch(c *dispatch.Context, op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	if pytree.AnyOnly(pytree.Tuple{[]any(args), kwargs}, func(l tensor.Like) bool {
		_, ok := l.(*tensor.Tensor)
		return !ok
	}) {
		return nil, dispatch.ErrNotImplemented
	}

	fargs, err := pytree.MapOnly(pytree.Tuple{[]any(args), kwargs}, func(t *tensor.Tensor) (any, error) {
		return m.FromTensor(t)
	})
	if err != nil {
		return nil, err
	}
	fa := fargs.(pytree.Tuple)
	fakeArgs := fa[0].([]any)
	fakeKwargs, _ := fa[1].(map[string]any)

	if op.Meta == nil && op.Decomposition != nil {
		defer c.Restore(m)()
		return op.Decomposition(c, fakeArgs, fakeKwargs)
	}
	return op.RunMeta(m, fakeArgs, fakeKwargs)
}
