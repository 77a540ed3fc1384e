// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides traceable neural network modules.
//
// # Overview
//
// This package contains:
//   - Layers: Linear
//   - Activations: ReLU, Tanh
//   - Utilities: Sequential, Module interface, Parameter
//   - Initialization: Xavier, Zeros
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fxtrace/fx"
//	    "github.com/born-ml/fxtrace/nn"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewPCG(1, 2))
//	    model := nn.NewSequential(
//	        nn.NewLinear(784, 128, rng),
//	        nn.NewReLU(),
//	        nn.NewLinear(128, 10, rng),
//	    )
//
//	    res, err := fx.Trace(nil, func(c *fx.Context, args ...any) (any, error) {
//	        return model.Forward(c, args[0].(*tensor.Tensor))
//	    }, []any{input}, fx.WithRoot(model))
//	}
//
// # Tracing
//
// Modules are inlined into the traced graph. Passing a module as the trace
// root with fx.WithRoot makes its parameters appear as get_attr nodes named
// after the dotted parameter path ("0.weight" becomes node 0_weight).
//
// # State Dicts
//
// Linear and Sequential save and load their parameters as raw tensors keyed
// by dotted name:
//
//	state := model.StateDict()
//	err := other.LoadStateDict(state)
package nn
