package ops

import (
	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Constant creates a tensor from literal values and hands it to the active
// modes, which may remember its value.
func Constant(c *dispatch.Context, values []float64, shape tensor.Shape, dtype tensor.DataType) (*tensor.Tensor, error) {
	t, err := tensor.FromFloat64s(values, shape, dtype)
	if err != nil {
		return nil, err
	}
	return call(c, catalog.LiftFresh, []any{t}, nil)
}

// Scalar is Constant for a single float32 value.
func Scalar(c *dispatch.Context, v float64) (*tensor.Tensor, error) {
	return Constant(c, []float64{v}, tensor.Shape{}, tensor.Float32)
}

// Zeros creates a float32 tensor of zeros.
func Zeros(c *dispatch.Context, sizes ...any) (*tensor.Tensor, error) {
	return call(c, catalog.Zeros, []any{sizes}, nil)
}

// Ones creates a float32 tensor of ones.
func Ones(c *dispatch.Context, sizes ...any) (*tensor.Tensor, error) {
	return call(c, catalog.Ones, []any{sizes}, nil)
}

// Full creates a tensor of the given dtype filled with zeros or ones.
func Full(c *dispatch.Context, one bool, dtype tensor.DataType, sizes ...any) (*tensor.Tensor, error) {
	op := catalog.Zeros
	if one {
		op = catalog.Ones
	}
	return call(c, op, []any{sizes}, map[string]any{"dtype": dtype})
}

// Randn draws a float32 tensor from N(0, 1) with a fixed seed.
func Randn(c *dispatch.Context, seed int64, sizes ...any) (*tensor.Tensor, error) {
	return call(c, catalog.Randn, []any{sizes}, map[string]any{"seed": seed})
}

// Item reads the value of a single element tensor: a float64 for float
// tensors, an int64 otherwise.
func Item(c *dispatch.Context, x *tensor.Tensor) (any, error) {
	return c.Call(catalog.Item, []any{x}, nil)
}
