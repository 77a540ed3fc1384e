package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/config"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/fake"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/metrics"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

const instrumentationName = "github.com/born-ml/fxtrace/internal/proxy"

// Mode selects how inputs are represented while tracing.
type Mode = config.Mode

// Tracing modes.
const (
	Real     = config.Real
	Fake     = config.Fake
	Symbolic = config.Symbolic
)

// Func is a traceable function. Operators must be called through c.
type Func func(c *dispatch.Context, args ...any) (any, error)

// Result is a finished trace.
type Result struct {
	// Module holds the graph and the constants it reads.
	Module *graph.Module
	// ShapeEnv holds the shape symbols of a symbolic trace, nil otherwise.
	ShapeEnv *symbolic.ShapeEnv
	// Tracer is the tracer that built the graph. Its slot table still maps
	// the values seen during the trace to their proxies.
	Tracer *Tracer
}

// Graph returns the traced graph.
func (r *Result) Graph() *graph.Graph {
	return r.Module.Graph
}

type options struct {
	mode     Mode
	decomps  catalog.Table
	cfg      config.Config
	root     graph.ParameterSource
	registry *catalog.Registry
	name     string
}

// Option configures Trace.
type Option func(*options)

// WithMode overrides the configured tracing mode.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithDecompositions installs a decomposition table for the trace. Entries
// take precedence over decompositions named in the configuration.
func WithDecompositions(table catalog.Table) Option {
	return func(o *options) {
		o.decomps = table
	}
}

// WithConfig sets the configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithRoot sets the module whose named parameters are referenced by name.
func WithRoot(root graph.ParameterSource) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithRegistry sets the catalog used to resolve configured decompositions.
func WithRegistry(r *catalog.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithName names the resulting module.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func (o *options) decompositions() (catalog.Table, error) {
	table := make(catalog.Table)
	if len(o.cfg.Decompositions) > 0 {
		core := catalog.CoreDecompositions()
		for _, name := range o.cfg.Decompositions {
			op, ok := o.registry.Get(name)
			if !ok {
				return nil, errors.Errorf("decompositions: unknown operator %q", name)
			}
			d, ok := core[op]
			if !ok {
				return nil, errors.Errorf("decompositions: no core decomposition for %s", op)
			}
			table[op] = d
		}
	}
	for op, d := range o.decomps {
		table[op] = d
	}
	return table, nil
}

// MakeFX returns a function tracing fn on the inputs it is given.
func MakeFX(fn Func, opts ...Option) func(c *dispatch.Context, args ...any) (*Result, error) {
	return func(c *dispatch.Context, args ...any) (*Result, error) {
		return Trace(c, fn, args, opts...)
	}
}

// Trace runs fn on args and records the operators it calls into a graph.
// The graph has one placeholder per tensor or scalar leaf of args. c may be
// nil; modes installed by Trace are removed before it returns.
func Trace(c *dispatch.Context, fn Func, args []any, opts ...Option) (res *Result, err error) {
	o := options{
		cfg:      config.Default(),
		registry: catalog.Default,
		name:     "fx",
	}
	for _, opt := range opts {
		opt(&o)
	}

	mode := o.cfg.Mode
	if o.mode != "" {
		mode = o.mode
	}
	if _, err := config.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if o.cfg.ConstantNumelLimit < 0 {
		return nil, errors.Errorf("constant numel limit must be >= 0, got %d", o.cfg.ConstantNumelLimit)
	}
	decomps, err := o.decompositions()
	if err != nil {
		return nil, err
	}

	if c == nil {
		c = dispatch.New(context.Background())
	}

	tr := NewTracer(graph.New(), o.root)
	ctx, span := otel.Tracer(instrumentationName).Start(c.Context(), "fxtrace.Trace",
		trace.WithAttributes(
			attribute.String("fxtrace.mode", string(mode)),
			attribute.String("fxtrace.tracer", tr.ID.String()),
		))
	defer span.End()

	logger := klog.FromContext(ctx).WithValues("tracer", tr.ID, "mode", mode)
	tr.Log = logger
	if o.cfg.Metrics {
		tr.OnNode = func(n *graph.Node) {
			metrics.NodesEmitted.WithLabelValues(string(n.Op)).Inc()
		}
	}

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			tr.Close()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("fxtrace.nodes", tr.Graph().Len()))
		if o.cfg.Metrics {
			metrics.TracesTotal.WithLabelValues(string(mode), outcome).Inc()
			metrics.TraceDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
		}
		logger.V(2).Info("trace finished", "outcome", outcome, "nodes", tr.Graph().Len(), "duration", time.Since(start))
	}()

	leaves, spec := pytree.Flatten(pytree.Tuple(args))

	var (
		fm  *fake.Mode
		env *symbolic.ShapeEnv
	)
	switch mode {
	case Fake:
		fm = fake.New()
	case Symbolic:
		env = symbolic.NewShapeEnv()
		fm = fake.New(fake.WithShapeEnv(env))
	}

	inputs, err := wrapInputs(fm, env, leaves)
	if err != nil {
		return nil, err
	}

	if fm != nil {
		defer c.Push(fm)()
	}
	defer c.WithDecompositions(decomps)()
	pm := NewDispatchMode(tr, o.cfg.ConstantNumelLimit)
	pm.metrics = o.cfg.Metrics
	defer c.PushSym(pm.SymMode())()
	defer c.Push(pm)()
	defer c.Autocast().DisableCache()()

	placeholders := make([]*graph.Proxy, len(inputs))
	for i := range inputs {
		name := fmt.Sprintf("arg%d_1", i)
		placeholders[i] = graph.NewProxy(tr.CreateNode(graph.Placeholder, name, nil, nil, name), tr.Tracer)
	}
	for i, in := range inputs {
		tr.trackTensorTree(in, placeholders[i], nil)
	}

	tree, err := spec.Unflatten(inputs)
	if err != nil {
		return nil, err
	}
	fnArgs, _ := tree.(pytree.Tuple)

	logger.V(3).Info("tracing", "inputs", len(inputs), "spec", spec.String())
	out, err := fn(c, fnArgs...)
	if err != nil {
		return nil, err
	}

	if err := tr.output(out); err != nil {
		return nil, err
	}

	m := tr.Module(o.name)
	m.InSpec = spec
	if err := m.Graph.Lint(); err != nil {
		return nil, errors.Wrap(err, "traced graph")
	}
	return &Result{Module: m, ShapeEnv: env, Tracer: tr}, nil
}

func wrapInputs(fm *fake.Mode, env *symbolic.ShapeEnv, leaves []any) ([]any, error) {
	inputs := make([]any, len(leaves))
	copy(inputs, leaves)
	if fm == nil {
		return inputs, nil
	}

	var syms [][]*symbolic.SymInt
	if env != nil {
		shapes := make([][]int, len(leaves))
		for i, l := range leaves {
			if t, ok := l.(*tensor.Tensor); ok && !t.IsFake() {
				shapes[i] = append([]int{}, t.Shape()...)
			}
		}
		syms = env.CreateShapesForArgs(shapes)
	}

	for i, l := range leaves {
		t, ok := l.(*tensor.Tensor)
		if !ok {
			continue
		}
		var (
			f   *tensor.Tensor
			err error
		)
		if syms != nil && !t.IsFake() {
			f, err = fm.FromTensorSymbolic(t, syms[i])
		} else {
			f, err = fm.FromTensor(t)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "input %d", i)
		}
		inputs[i] = f
	}
	return inputs, nil
}

// output appends the output node. Tracked values are replaced by their
// nodes; anything else is interned as a constant.
func (t *Tracer) output(out any) error {
	proxied, err := pytree.Map(out, func(l any) (any, error) {
		if p, ok := t.lookupProxy(l); ok {
			return p, nil
		}
		return l, nil
	})
	if err != nil {
		return err
	}
	arg, err := t.CreateArg(proxied)
	if err != nil {
		return errors.Wrap(err, "output")
	}
	t.CreateNode(graph.Output, "output", []any{arg}, nil, "output")
	return nil
}

func (t *Tracer) lookupProxy(v any) (*graph.Proxy, bool) {
	var (
		s  Slot
		ok bool
	)
	switch x := v.(type) {
	case *tensor.Tensor:
		if x != nil {
			s, ok = t.slots.Get(x)
		}
	case *symbolic.SymInt:
		if x != nil {
			s, ok = t.slots.Get(x)
		}
	case *symbolic.SymFloat:
		if x != nil {
			s, ok = t.slots.Get(x)
		}
	}
	return s.Handle(), ok
}
