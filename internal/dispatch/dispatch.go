// Package dispatch routes operator calls through a stack of interception
// modes.
//
// A Context carries two stacks, one for tensor modes and one for symbolic
// scalar modes. The innermost mode handles a call first. While it runs it is
// suspended, so operator calls it makes reach the next mode down; Restore
// re-activates it for a nested region. A mode declines by returning
// ErrNotImplemented, and a call nobody handles runs the operator directly.
//
// A Context is not safe for concurrent use.
package dispatch

import (
	"context"

	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
)

// Dispatch errors.
var (
	// ErrNotImplemented is returned by a mode to decline a call.
	ErrNotImplemented = catalog.ErrNotImplemented
	// ErrUnsupported is returned when no layer can run a call.
	ErrUnsupported = catalog.ErrUnsupported
)

// Mode intercepts tensor operator calls.
type Mode interface {
	Dispatch(c *Context, op *catalog.Operator, args []any, kwargs map[string]any) (any, error)
}

// SymMode intercepts operations on symbolic scalars.
type SymMode interface {
	SymDispatch(c *Context, op *catalog.Operator, args []any, kwargs map[string]any) (any, error)
}

type frame[M comparable] struct {
	mode  M
	inner *frame[M]
}

type stack[M comparable] struct {
	current *frame[M]
	pushed  []*frame[M]
}

func (s *stack[M]) push(m M) func() {
	f := &frame[M]{mode: m, inner: s.current}
	prev := s.current
	s.current = f
	s.pushed = append(s.pushed, f)
	return func() {
		s.current = prev
		for i := len(s.pushed) - 1; i >= 0; i-- {
			if s.pushed[i] == f {
				s.pushed = append(s.pushed[:i], s.pushed[i+1:]...)
				break
			}
		}
	}
}

func (s *stack[M]) restore(m M) (func(), bool) {
	for i := len(s.pushed) - 1; i >= 0; i-- {
		if s.pushed[i].mode == m {
			prev := s.current
			s.current = s.pushed[i]
			return func() { s.current = prev }, true
		}
	}
	return nil, false
}

func (s *stack[M]) list() []M {
	var out []M
	for f := s.current; f != nil; f = f.inner {
		out = append(out, f.mode)
	}
	return out
}

// Context is the explicit dispatch state of one call tree.
type Context struct {
	ctx      context.Context
	modes    stack[Mode]
	symModes stack[SymMode]
	decomps  catalog.Table
	autocast Autocast
}

// New returns a context with empty mode stacks.
func New(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		ctx:      ctx,
		autocast: Autocast{cacheEnabled: true},
	}
}

// Context returns the context.Context the dispatch context was created with.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Push installs m as the innermost tensor mode. The returned func pops it.
func (c *Context) Push(m Mode) (pop func()) {
	return c.modes.push(m)
}

// PushSym installs m as the innermost symbolic mode.
func (c *Context) PushSym(m SymMode) (pop func()) {
	return c.symModes.push(m)
}

// Restore re-activates a suspended mode m until the returned func is called.
// Restoring a mode that is not installed is a no-op.
func (c *Context) Restore(m Mode) (restore func()) {
	if r, ok := c.modes.restore(m); ok {
		return r
	}
	return func() {}
}

// RestoreSym is Restore for symbolic modes.
func (c *Context) RestoreSym(m SymMode) (restore func()) {
	if r, ok := c.symModes.restore(m); ok {
		return r
	}
	return func() {}
}

// Modes returns the active tensor modes, innermost first.
func (c *Context) Modes() []Mode {
	return c.modes.list()
}

// SymModes returns the active symbolic modes, innermost first.
func (c *Context) SymModes() []SymMode {
	return c.symModes.list()
}

// Call dispatches op to the innermost active mode.
func (c *Context) Call(op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	top := c.modes.current
	if top == nil {
		return c.Direct(op, args, kwargs)
	}

	c.modes.current = top.inner
	defer func() { c.modes.current = top }()

	out, err := top.mode.Dispatch(c, op, args, kwargs)
	if errors.Is(err, ErrNotImplemented) {
		return c.Call(op, args, kwargs)
	}
	return out, err
}

// SymCall dispatches a symbolic scalar operation to the innermost symbolic
// mode.
func (c *Context) SymCall(op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	top := c.symModes.current
	if top == nil {
		return op.Run(args, kwargs)
	}

	c.symModes.current = top.inner
	defer func() { c.symModes.current = top }()

	out, err := top.mode.SymDispatch(c, op, args, kwargs)
	if errors.Is(err, ErrNotImplemented) {
		return c.SymCall(op, args, kwargs)
	}
	return out, err
}

// Direct runs op bypassing every mode. Operators without a kernel run their
// decomposition.
func (c *Context) Direct(op *catalog.Operator, args []any, kwargs map[string]any) (any, error) {
	if op.Kernel == nil && op.Decomposition != nil {
		out, err := op.Decomposition(c, args, kwargs)
		if !errors.Is(err, ErrNotImplemented) {
			return out, err
		}
	}
	out, err := op.Run(args, kwargs)
	if errors.Is(err, ErrNotImplemented) {
		return nil, errors.Wrapf(ErrUnsupported, "no mode or kernel accepted %s", op)
	}
	return out, err
}

// Decompositions returns the decomposition table in effect.
func (c *Context) Decompositions() catalog.Table {
	return c.decomps
}

// WithDecompositions makes table the decomposition table in effect until the
// returned func is called.
func (c *Context) WithDecompositions(table catalog.Table) (restore func()) {
	prev := c.decomps
	c.decomps = table
	return func() { c.decomps = prev }
}

// Autocast returns the mixed precision state.
func (c *Context) Autocast() *Autocast {
	return &c.autocast
}
