package main

import (
	"math/rand/v2"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/nn"
	"github.com/born-ml/fxtrace/internal/ops"
	"github.com/born-ml/fxtrace/internal/proxy"
	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/tensor"
)

type program struct {
	help   string
	fn     proxy.Func
	inputs func() ([]any, error)
	root   graph.ParameterSource
}

var mlp = nn.NewSequential(
	nn.NewLinear(4, 8, rand.New(rand.NewPCG(1, 1))),
	nn.NewReLU(),
	nn.NewLinear(8, 2, rand.New(rand.NewPCG(2, 2))),
)

var programs = map[string]program{
	"add-relu": {
		help: "relu(x + 1), returning both intermediate values",
		fn: func(c *dispatch.Context, args ...any) (any, error) {
			y, err := ops.Add(c, args[0].(*tensor.Tensor), 1.0)
			if err != nil {
				return nil, err
			}
			z, err := ops.ReLU(c, y)
			if err != nil {
				return nil, err
			}
			return pytree.Tuple{y, z}, nil
		},
		inputs: func() ([]any, error) {
			x, err := tensor.FromSlice([]float32{-2, -1, 0, 1, 2, 3}, tensor.Shape{2, 3})
			return []any{x}, err
		},
	},
	"mlp": {
		help: "a two layer perceptron; parameters keep their module names",
		fn: func(c *dispatch.Context, args ...any) (any, error) {
			return mlp.Forward(c, args[0].(*tensor.Tensor))
		},
		inputs: func() ([]any, error) {
			x, err := tensor.FromSlice(make([]float32, 12), tensor.Shape{3, 4})
			return []any{x}, err
		},
		root: mlp,
	},
	"constants": {
		help: "x + (k * 2) where k is a literal; the constant folds through the trace",
		fn: func(c *dispatch.Context, args ...any) (any, error) {
			k, err := ops.Scalar(c, 3)
			if err != nil {
				return nil, err
			}
			k2, err := ops.Mul(c, k, 2.0)
			if err != nil {
				return nil, err
			}
			return ops.Add(c, args[0].(*tensor.Tensor), k2)
		},
		inputs: func() ([]any, error) {
			x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
			return []any{x}, err
		},
	},
	"nested": {
		help: "nested inputs and outputs: a list of tensors and a dict",
		fn: func(c *dispatch.Context, args ...any) (any, error) {
			pair := args[0].([]any)
			opts := args[1].(map[string]any)
			a, b := pair[0].(*tensor.Tensor), pair[1].(*tensor.Tensor)
			s, err := ops.Add(c, a, b)
			if err != nil {
				return nil, err
			}
			scaled, err := ops.Mul(c, s, opts["scale"])
			if err != nil {
				return nil, err
			}
			return map[string]any{"sum": s, "scaled": scaled}, nil
		},
		inputs: func() ([]any, error) {
			a, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
			if err != nil {
				return nil, err
			}
			b, err := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2})
			if err != nil {
				return nil, err
			}
			return []any{[]any{a, b}, map[string]any{"scale": 0.5}}, nil
		},
	},
	"flatten": {
		help: "views x as a vector of numel(x) elements; try -mode=symbolic",
		fn: func(c *dispatch.Context, args ...any) (any, error) {
			x := args[0].(*tensor.Tensor)
			n, err := ops.Numel(c, x)
			if err != nil {
				return nil, err
			}
			flat, err := ops.View(c, x, n)
			if err != nil {
				return nil, err
			}
			return ops.Tanh(c, flat)
		},
		inputs: func() ([]any, error) {
			x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
			return []any{x}, err
		},
	},
	"affine": {
		help: "addmm followed by division; try -decompose=addmm,div",
		fn: func(c *dispatch.Context, args ...any) (any, error) {
			y, err := ops.Addmm(c, args[0].(*tensor.Tensor), args[1].(*tensor.Tensor), args[2].(*tensor.Tensor))
			if err != nil {
				return nil, err
			}
			return ops.Div(c, y, 2.0)
		},
		inputs: func() ([]any, error) {
			bias, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{2})
			if err != nil {
				return nil, err
			}
			a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
			if err != nil {
				return nil, err
			}
			b, err := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2})
			if err != nil {
				return nil, err
			}
			return []any{bias, a, b}, nil
		},
	},
}
