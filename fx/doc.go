// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fx traces Go functions over tensors into operator graphs.
//
// # Overview
//
// Trace runs a function once while a recording dispatch mode is active.
// Every operator the function calls through its *Context becomes a
// call_function node; inputs become placeholders, module parameters become
// get_attr nodes, and the returned structure becomes the output node.
//
// Three modes control what the function sees:
//   - Real: the given tensors, with real results
//   - Fake: metadata-only tensors of the same shape and dtype
//   - Symbolic: fake tensors whose sizes are shape symbols s0, s1, ...
//
// # Basic Usage
//
//	fn := func(c *fx.Context, args ...any) (any, error) {
//	    y, err := tensor.Add(c, args[0].(*tensor.Tensor), 1.0)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return tensor.ReLU(c, y)
//	}
//
//	res, err := fx.Trace(nil, fn, []any{x}, fx.WithMode(fx.Symbolic))
//	fmt.Print(res.Module)
//	out, err := res.Module.Run(fx.NewContext(ctx), x)
//
// # Decompositions
//
// A decomposition table rewrites operators into simpler ones while tracing:
//
//	res, err := fx.Trace(nil, fn, args, fx.WithDecompositions(fx.CoreDecompositions()))
//
// An existing graph can be decomposed after the fact with
// NewDecompositionInterpreter.
package fx
