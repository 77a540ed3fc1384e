// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fx_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fxtrace/fx"
	"github.com/born-ml/fxtrace/nn"
	"github.com/born-ml/fxtrace/tensor"
)

func targets(g *fx.Graph) []string {
	var out []string
	for _, n := range g.Nodes() {
		if op, ok := n.Target.(*fx.Operator); ok {
			out = append(out, op.Name)
		}
	}
	return out
}

func TestTraceAndReplay(t *testing.T) {
	fn := func(c *fx.Context, args ...any) (any, error) {
		y, err := tensor.Add(c, args[0].(*tensor.Tensor), 1.0)
		if err != nil {
			return nil, err
		}
		return tensor.ReLU(c, y)
	}
	x, err := tensor.FromSlice([]float32{-3, 1}, tensor.Shape{2})
	require.NoError(t, err)

	for _, mode := range []fx.Mode{fx.Real, fx.Fake, fx.Symbolic} {
		t.Run(string(mode), func(t *testing.T) {
			res, err := fx.Trace(nil, fn, []any{x}, fx.WithMode(mode))
			require.NoError(t, err)
			assert.Equal(t, []string{"add", "relu"}, targets(res.Graph()))
			assert.Equal(t, mode == fx.Symbolic, res.ShapeEnv != nil)

			out, err := res.Module.Run(fx.NewContext(context.Background()), x)
			require.NoError(t, err)
			got, err := out.(*tensor.Tensor).Float64s()
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 2}, got)
		})
	}
}

func TestTraceModuleRoot(t *testing.T) {
	model := nn.NewSequential(nn.NewLinear(3, 2, rand.New(rand.NewPCG(7, 7))), nn.NewTanh())
	fn := func(c *fx.Context, args ...any) (any, error) {
		return model.Forward(c, args[0].(*tensor.Tensor))
	}
	x, err := tensor.FromSlice(make([]float32, 6), tensor.Shape{2, 3})
	require.NoError(t, err)

	res, err := fx.Trace(nil, fn, []any{x}, fx.WithRoot(model), fx.WithMode(fx.Fake))
	require.NoError(t, err)
	assert.Equal(t, []string{"0.bias", "0.weight"}, res.Module.AttrNames())
	assert.Equal(t, []string{"t", "matmul", "add", "tanh"}, targets(res.Graph()))
}

func TestDecompose(t *testing.T) {
	fn := func(c *fx.Context, args ...any) (any, error) {
		return tensor.Addmm(c, args[0].(*tensor.Tensor), args[1].(*tensor.Tensor), args[2].(*tensor.Tensor))
	}
	bias, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{2})
	require.NoError(t, err)
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2})
	require.NoError(t, err)
	args := []any{bias, a, b}

	res, err := fx.Trace(nil, fn, args)
	require.NoError(t, err)
	assert.Equal(t, []string{"addmm"}, targets(res.Graph()))

	g := fx.NewGraph()
	_, err = fx.NewDecompositionInterpreter(res.Module, g, fx.CoreDecompositions()).Run(nil, args...)
	require.NoError(t, err)
	assert.Equal(t, []string{"matmul", "add"}, targets(g))

	addmm, ok := fx.LookupOperator("addmm")
	require.True(t, ok)
	assert.Contains(t, fx.CoreDecompositions(), addmm)
}

func TestParseMode(t *testing.T) {
	m, err := fx.ParseMode("symbolic")
	require.NoError(t, err)
	assert.Equal(t, fx.Symbolic, m)

	_, err = fx.ParseMode("eager")
	assert.ErrorIs(t, err, fx.ErrInvalidMode)
}
