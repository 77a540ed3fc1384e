// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fx

import (
	"context"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/config"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/proxy"
)

// Context carries the dispatch modes of a computation.
type Context = dispatch.Context

// NewContext returns a context with no modes installed.
func NewContext(ctx context.Context) *Context {
	return dispatch.New(ctx)
}

// Tracing

// Mode selects how inputs are represented while tracing.
type Mode = proxy.Mode

// Tracing modes.
const (
	Real     = proxy.Real
	Fake     = proxy.Fake
	Symbolic = proxy.Symbolic
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	return config.ParseMode(s)
}

// Func is a traceable function.
type Func = proxy.Func

// KwFunc is a traceable function taking keyword arguments.
type KwFunc = proxy.KwFunc

// Result is a finished trace.
type Result = proxy.Result

// Option configures Trace.
type Option = proxy.Option

// Trace runs fn on args and records the operators it calls into a graph.
// c may be nil.
//
// Example:
//
//	res, err := fx.Trace(nil, fn, []any{x})
//	for _, n := range res.Graph().Nodes() {
//	    fmt.Println(n)
//	}
func Trace(c *Context, fn Func, args []any, opts ...Option) (*Result, error) {
	return proxy.Trace(c, fn, args, opts...)
}

// MakeFX returns a function tracing fn on the inputs it is given.
func MakeFX(fn Func, opts ...Option) func(c *Context, args ...any) (*Result, error) {
	return proxy.MakeFX(fn, opts...)
}

// WithMode overrides the configured tracing mode.
func WithMode(m Mode) Option { return proxy.WithMode(m) }

// WithDecompositions installs a decomposition table for the trace.
func WithDecompositions(table Table) Option { return proxy.WithDecompositions(table) }

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option { return proxy.WithConfig(cfg) }

// WithRoot names parameters after the given module's parameter paths.
func WithRoot(root graph.ParameterSource) Option { return proxy.WithRoot(root) }

// WithName names the resulting module.
func WithName(name string) Option { return proxy.WithName(name) }

// IsolatedSubgraph traces fn into a separate module while an outer trace is
// running. The outer graph is left untouched.
func IsolatedSubgraph(c *Context, fn KwFunc, args []any, kwargs map[string]any, mode Mode, opts ...Option) (*Module, error) {
	return proxy.IsolatedSubgraph(c, fn, args, kwargs, mode, opts...)
}

// DisableProxyModesTracing stops the innermost recording mode until restore
// is called.
func DisableProxyModesTracing(c *Context) (restore func()) {
	return proxy.DisableProxyModesTracing(c)
}

// Graphs

// Module is a traced graph together with the constants it reads.
type Module = graph.Module

// Graph is an ordered list of nodes.
type Graph = graph.Graph

// Node is a graph node.
type Node = graph.Node

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return graph.New()
}

// DecompositionInterpreter replays a module into a new graph with a
// decomposition table in effect.
type DecompositionInterpreter = proxy.DecompositionInterpreter

// NewDecompositionInterpreter returns an interpreter of m appending to g.
//
// Example:
//
//	g := fx.NewGraph()
//	_, err := fx.NewDecompositionInterpreter(res.Module, g, fx.CoreDecompositions()).Run(nil, x)
func NewDecompositionInterpreter(m *Module, g *Graph, table Table) *DecompositionInterpreter {
	return proxy.NewDecompositionInterpreter(m, g, table)
}

// Decompositions

// Table maps operators to decompositions.
type Table = catalog.Table

// Operator is a catalog operator.
type Operator = catalog.Operator

// CoreDecompositions returns the built-in decompositions of composite
// operators.
func CoreDecompositions() Table {
	return catalog.CoreDecompositions()
}

// LookupOperator returns the operator registered under name.
func LookupOperator(name string) (*Operator, bool) {
	return catalog.Default.Get(name)
}

// Configuration

// Config holds tracing settings.
type Config = config.Config

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// Errors
var (
	ErrDataDependent    = proxy.ErrDataDependent
	ErrConstantBakedIn  = proxy.ErrConstantBakedIn
	ErrSymbolicMismatch = proxy.ErrSymbolicMismatch
	ErrInvalidMode      = proxy.ErrInvalidMode
	ErrNotImplemented   = dispatch.ErrNotImplemented
)
