// Package ops provides typed entry points for the catalog operators. Every
// function dispatches through the given context, so the calls are seen by
// whatever modes are active on it.
package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/tensor"
)

func call(c *dispatch.Context, op *catalog.Operator, args []any, kwargs map[string]any) (*tensor.Tensor, error) {
	out, err := c.Call(op, args, kwargs)
	if err != nil {
		return nil, err
	}
	t, ok := out.(*tensor.Tensor)
	if !ok {
		return nil, errors.Errorf("%s returned %T, want a tensor", op, out)
	}
	return t, nil
}

// Add returns a + b. b is a tensor or a scalar.
func Add(c *dispatch.Context, a *tensor.Tensor, b any) (*tensor.Tensor, error) {
	return call(c, catalog.Add, []any{a, b}, nil)
}

// Sub returns a - b.
func Sub(c *dispatch.Context, a *tensor.Tensor, b any) (*tensor.Tensor, error) {
	return call(c, catalog.Sub, []any{a, b}, nil)
}

// Mul returns a * b.
func Mul(c *dispatch.Context, a *tensor.Tensor, b any) (*tensor.Tensor, error) {
	return call(c, catalog.Mul, []any{a, b}, nil)
}

// Div returns a / b.
func Div(c *dispatch.Context, a *tensor.Tensor, b any) (*tensor.Tensor, error) {
	return call(c, catalog.Div, []any{a, b}, nil)
}

// AddInplace adds b into a and returns a.
func AddInplace(c *dispatch.Context, a *tensor.Tensor, b any) (*tensor.Tensor, error) {
	return call(c, catalog.AddInp, []any{a, b}, nil)
}

// Neg returns -x.
func Neg(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.Neg, []any{x}, nil)
}

// ReLU returns max(x, 0).
func ReLU(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.ReLU, []any{x}, nil)
}

// Exp returns e^x.
func Exp(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.Exp, []any{x}, nil)
}

// Tanh returns tanh(x).
func Tanh(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.Tanh, []any{x}, nil)
}

// Sum reduces x to a 0-d tensor.
func Sum(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.Sum, []any{x}, nil)
}

// MatMul returns the matrix product a @ b. Under autocast both operands are
// cast first.
func MatMul(c *dispatch.Context, a, b *tensor.Tensor) (*tensor.Tensor, error) {
	a, b, err := autocast(c, a, b)
	if err != nil {
		return nil, err
	}
	return call(c, catalog.MatMul, []any{a, b}, nil)
}

// Linear returns x @ w.T + bias. bias may be nil.
func Linear(c *dispatch.Context, x, w, bias *tensor.Tensor) (*tensor.Tensor, error) {
	x, w, err := autocast(c, x, w)
	if err != nil {
		return nil, err
	}
	args := []any{x, w}
	if bias != nil {
		args = append(args, bias)
	}
	return call(c, catalog.Linear, args, nil)
}

// Addmm returns bias + a @ b.
func Addmm(c *dispatch.Context, bias, a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.Addmm, []any{bias, a, b}, nil)
}

func autocast(c *dispatch.Context, a, b *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	ac := c.Autocast()
	if !ac.Enabled() {
		return a, b, nil
	}
	a, err := ac.Cast(c, a)
	if err != nil {
		return nil, nil, err
	}
	b, err = ac.Cast(c, b)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
