package proxy

import (
	"context"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/pytree"
)

// KwFunc is a function taking positional and keyword arguments.
type KwFunc func(c *dispatch.Context, args []any, kwargs map[string]any) (any, error)

// IsolatedSubgraph traces fn into a standalone module without recording
// anything into traces already in progress on c.
func IsolatedSubgraph(c *dispatch.Context, fn KwFunc, args []any, kwargs map[string]any, mode Mode, opts ...Option) (*graph.Module, error) {
	if c == nil {
		c = dispatch.New(context.Background())
	}
	defer DisableProxyModesTracing(c)()

	flat, spec := pytree.Flatten(pytree.Tuple{args, kwargs})
	wrapped := func(c *dispatch.Context, leaves ...any) (any, error) {
		tree, err := spec.Unflatten(leaves)
		if err != nil {
			return nil, err
		}
		a, k := splitArgs(tree)
		return fn(c, a, k)
	}

	res, err := Trace(c, wrapped, flat, append(opts, WithMode(mode))...)
	if err != nil {
		return nil, err
	}
	return res.Module, nil
}

// DisableProxyModesTracing stops every active recording mode on c, tensor
// and symbolic alike, until the returned func is called.
func DisableProxyModesTracing(c *dispatch.Context) (restore func()) {
	var restores []func()
	for _, m := range c.Modes() {
		if pm, ok := m.(*DispatchMode); ok {
			restores = append(restores, pm.EnableTracing(false))
		}
	}
	for _, m := range c.SymModes() {
		if sm, ok := m.(*SymDispatchMode); ok {
			restores = append(restores, sm.Enable(false))
		}
	}
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}
