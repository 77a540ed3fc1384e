// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensors and operators understood by fxtrace.
//
// # Overview
//
// A Tensor is either real (it owns a RawTensor buffer) or fake (it carries
// only a dtype, a device and sizes, which may be symbolic). Operators are
// plain functions taking a *Context: every call goes through the context's
// dispatch modes, which is what lets fx.Trace record them.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fxtrace/fx"
//	    "github.com/born-ml/fxtrace/tensor"
//	)
//
//	func main() {
//	    c := fx.NewContext(context.Background())
//
//	    x, _ := tensor.FromSlice([]float32{1, -2, 3}, tensor.Shape{3})
//	    y, _ := tensor.Add(c, x, 1.0)
//	    z, _ := tensor.ReLU(c, y)
//	    fmt.Println(z.Float64s())
//	}
//
// # Supported Data Types
//
//   - Float32, Float64 (floating-point)
//   - Int32, Int64 (signed integers)
//   - Uint8
//   - Bool
//
// Binary operators broadcast NumPy-style and promote mixed float operands
// to the wider type.
package tensor
