package nn

import (
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/graph"
	"github.com/born-ml/fxtrace/internal/ops"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
type ReLU struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU) Forward(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, r, func() (*tensor.Tensor, error) {
		return ops.ReLU(c, x)
	})
}

// NamedParameters returns nil (ReLU has no trainable parameters).
func (r *ReLU) NamedParameters() []graph.NamedParameter {
	return nil
}

// Tanh is a hyperbolic tangent activation module.
//
// Applies the element-wise function: tanh(x) = (exp(x) - exp(-x)) / (exp(x) + exp(-x))
type Tanh struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Forward applies Tanh activation.
func (t *Tanh) Forward(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, t, func() (*tensor.Tensor, error) {
		return ops.Tanh(c, x)
	})
}

// NamedParameters returns nil (Tanh has no trainable parameters).
func (t *Tanh) NamedParameters() []graph.NamedParameter {
	return nil
}
