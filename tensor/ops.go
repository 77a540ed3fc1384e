// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/fxtrace/internal/ops"

// Arithmetic. b may be a tensor or a scalar.

// Add computes a + b.
func Add(c *Context, a *Tensor, b any) (*Tensor, error) { return ops.Add(c, a, b) }

// Sub computes a - b.
func Sub(c *Context, a *Tensor, b any) (*Tensor, error) { return ops.Sub(c, a, b) }

// Mul computes a * b.
func Mul(c *Context, a *Tensor, b any) (*Tensor, error) { return ops.Mul(c, a, b) }

// Div computes a / b.
func Div(c *Context, a *Tensor, b any) (*Tensor, error) { return ops.Div(c, a, b) }

// AddInplace adds b into a and returns a.
func AddInplace(c *Context, a *Tensor, b any) (*Tensor, error) { return ops.AddInplace(c, a, b) }

// Neg computes -x.
func Neg(c *Context, x *Tensor) (*Tensor, error) { return ops.Neg(c, x) }

// ReLU computes max(x, 0).
func ReLU(c *Context, x *Tensor) (*Tensor, error) { return ops.ReLU(c, x) }

// Exp computes e^x.
func Exp(c *Context, x *Tensor) (*Tensor, error) { return ops.Exp(c, x) }

// Tanh computes tanh(x).
func Tanh(c *Context, x *Tensor) (*Tensor, error) { return ops.Tanh(c, x) }

// Sum reduces x to a scalar.
func Sum(c *Context, x *Tensor) (*Tensor, error) { return ops.Sum(c, x) }

// MatMul multiplies two matrices.
func MatMul(c *Context, a, b *Tensor) (*Tensor, error) { return ops.MatMul(c, a, b) }

// Linear computes x @ w.T + bias. bias may be nil.
func Linear(c *Context, x, w, bias *Tensor) (*Tensor, error) { return ops.Linear(c, x, w, bias) }

// Addmm computes bias + a @ b.
func Addmm(c *Context, bias, a, b *Tensor) (*Tensor, error) { return ops.Addmm(c, bias, a, b) }

// Shape operations.

// T transposes a matrix.
func T(c *Context, x *Tensor) (*Tensor, error) { return ops.T(c, x) }

// View reshapes x. Sizes may be ints or symbolic ints.
func View(c *Context, x *Tensor, sizes ...any) (*Tensor, error) { return ops.View(c, x, sizes...) }

// Clone copies x.
func Clone(c *Context, x *Tensor) (*Tensor, error) { return ops.Clone(c, x) }

// To converts x to dtype.
func To(c *Context, x *Tensor, dtype DataType) (*Tensor, error) { return ops.To(c, x, dtype) }

// Chunk splits x into n pieces along dim.
func Chunk(c *Context, x *Tensor, n, dim int) ([]*Tensor, error) { return ops.Chunk(c, x, n, dim) }

// Size returns the sizes of x as ints or symbolic ints.
func Size(c *Context, x Like) ([]any, error) { return ops.Size(c, x) }

// SizeAt returns the size of x along dim.
func SizeAt(c *Context, x Like, dim int) (any, error) { return ops.SizeAt(c, x, dim) }

// Numel returns the element count of x as an int or a symbolic int.
func Numel(c *Context, x Like) (any, error) { return ops.Numel(c, x) }

// Creation.

// Constant creates a tensor from literal values.
func Constant(c *Context, values []float64, shape Shape, dtype DataType) (*Tensor, error) {
	return ops.Constant(c, values, shape, dtype)
}

// Scalar creates a float32 scalar tensor.
func Scalar(c *Context, v float64) (*Tensor, error) { return ops.Scalar(c, v) }

// Zeros creates a float32 tensor of zeros.
func Zeros(c *Context, sizes ...any) (*Tensor, error) { return ops.Zeros(c, sizes...) }

// Ones creates a float32 tensor of ones.
func Ones(c *Context, sizes ...any) (*Tensor, error) { return ops.Ones(c, sizes...) }

// Randn draws a seeded float32 tensor from N(0, 1).
func Randn(c *Context, seed int64, sizes ...any) (*Tensor, error) { return ops.Randn(c, seed, sizes...) }

// Item reads a single element tensor.
func Item(c *Context, x *Tensor) (any, error) { return ops.Item(c, x) }
