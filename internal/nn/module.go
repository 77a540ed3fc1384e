// Package nn implements neural network modules whose forward passes run
// through a dispatch context, so they can be traced.
//
// This package provides:
//   - Module interface: base interface for all NN components
//   - Parameter: named trainable tensors
//   - Linear: fully connected layer
//   - Activations: ReLU, Tanh
//   - Sequential: container for stacking layers
//
// Every Forward is wrapped in graph.CallModule. Tracers inline sub-modules,
// and modules double as trace roots: their named parameters appear in the
// traced graph under the same names.
package nn

import (
	"fmt"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules can be composed to build larger models:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	)
type Module interface {
	// Forward computes the output of the module for input x.
	Forward(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error)

	// NamedParameters returns the trainable parameters, including those of
	// nested modules, under dotted names.
	NamedParameters() []graph.NamedParameter
}

// call runs forward as a sub-module call of m.
func call(c *dispatch.Context, m Module, forward func() (*tensor.Tensor, error)) (*tensor.Tensor, error) {
	out, err := graph.CallModule(c, m, func() (any, error) {
		return forward()
	})
	if err != nil {
		return nil, err
	}
	t, ok := out.(*tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("%T.Forward returned %T, want a tensor", m, out)
	}
	return t, nil
}
