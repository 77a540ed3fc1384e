package ops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/fake"
	"github.com/born-ml/fxtrace/internal/ops"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

func newContext() *dispatch.Context {
	return dispatch.New(context.Background())
}

func mat(t *testing.T, rows, cols int, data ...float32) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape{rows, cols})
	require.NoError(t, err)
	return x
}

func values(t *testing.T, x *tensor.Tensor) []float64 {
	t.Helper()
	v, err := x.Float64s()
	require.NoError(t, err)
	return v
}

func TestArithmetic(t *testing.T) {
	c := newContext()
	a := mat(t, 2, 2, 1, -2, 3, -4)

	y, err := ops.Add(c, a, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -1, 4, -3}, values(t, y))

	y, err = ops.Sub(c, a, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, values(t, y))

	y, err = ops.Mul(c, a, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -4, 6, -8}, values(t, y))

	y, err = ops.Div(c, a, 2.0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1, 1.5, -2}, values(t, y))

	y, err = ops.Neg(c, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 2, -3, 4}, values(t, y))

	y, err = ops.ReLU(c, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 3, 0}, values(t, y))

	y, err = ops.Sum(c, a)
	require.NoError(t, err)
	assert.Equal(t, []float64{-2}, values(t, y))

	y, err = ops.Exp(c, mat(t, 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, values(t, y))

	y, err = ops.Tanh(c, mat(t, 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, values(t, y))

	y, err = ops.AddInplace(c, a, 1.0)
	require.NoError(t, err)
	assert.Same(t, a, y)
	assert.Equal(t, []float64{2, -1, 4, -3}, values(t, a))
}

func TestMatrixOps(t *testing.T) {
	c := newContext()
	x := mat(t, 1, 2, 1, 2)
	w := mat(t, 2, 2, 1, 2, 3, 4)
	b, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{2})
	require.NoError(t, err)

	y, err := ops.MatMul(c, x, w)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 10}, values(t, y))

	y, err = ops.Linear(c, x, w, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 12}, values(t, y))

	y, err = ops.Linear(c, x, w, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 11}, values(t, y))

	y, err = ops.Addmm(c, b, x, w)
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 11}, values(t, y))

	y, err = ops.T(c, w)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2, 4}, values(t, y))
}

func TestAutocastMatMul(t *testing.T) {
	c := newContext()
	defer c.Autocast().Enable(tensor.Float64)()

	y, err := ops.MatMul(c, mat(t, 1, 1, 2), mat(t, 1, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, y.DType())
	assert.Equal(t, []float64{6}, values(t, y))
}

func TestShapeOps(t *testing.T) {
	c := newContext()
	x := mat(t, 2, 3, 1, 2, 3, 4, 5, 6)

	v, err := ops.View(c, x, 3, -1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, v.Shape())

	_, err = ops.View(c, x, 4, -1)
	assert.Error(t, err)

	cl, err := ops.Clone(c, x)
	require.NoError(t, err)
	assert.NotSame(t, x, cl)
	assert.Equal(t, values(t, x), values(t, cl))

	d, err := ops.To(c, x, tensor.Int64)
	require.NoError(t, err)
	assert.Equal(t, tensor.Int64, d.DType())

	parts, err := ops.Chunk(c, x, 3, 1)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, []float64{1, 4}, values(t, parts[0]))

	sizes, err := ops.Size(c, x)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, sizes)

	s, err := ops.SizeAt(c, x, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s)

	n, err := ops.Numel(c, x)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	dev, err := ops.DeviceOf(c, x)
	require.NoError(t, err)
	assert.Equal(t, tensor.CPU, dev)
}

func TestCreation(t *testing.T) {
	c := newContext()

	z, err := ops.Zeros(c, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, values(t, z))

	o, err := ops.Ones(c, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, values(t, o))

	f, err := ops.Full(c, true, tensor.Int32, 2)
	require.NoError(t, err)
	assert.Equal(t, tensor.Int32, f.DType())

	r1, err := ops.Randn(c, 42, 4)
	require.NoError(t, err)
	r2, err := ops.Randn(c, 42, 4)
	require.NoError(t, err)
	assert.Equal(t, values(t, r1), values(t, r2))

	k, err := ops.Constant(c, []float64{1, 2}, tensor.Shape{2}, tensor.Float64)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, values(t, k))

	s, err := ops.Scalar(c, 3)
	require.NoError(t, err)
	v, err := ops.Item(c, s)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestSymOps(t *testing.T) {
	c := newContext()

	v, err := ops.SymAdd(c, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	s0 := symbolic.NewShapeEnv().CreateSymbol(8)
	v, err = ops.SymFloorDiv(c, s0, 3)
	require.NoError(t, err)
	assert.Equal(t, "(s0 // 3)", v.(*symbolic.SymInt).Expr())

	v, err = ops.SymSub(c, s0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.(*symbolic.SymInt).Hint())

	v, err = ops.SymMul(c, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)

	f, err := ops.SymFloat(c, s0)
	require.NoError(t, err)
	q, err := ops.SymTrueDiv(c, f, 16)
	require.NoError(t, err)
	assert.Equal(t, 0.5, q.(*symbolic.SymFloat).Hint())
}

func TestOpsUnderFakeMode(t *testing.T) {
	c := newContext()
	env := symbolic.NewShapeEnv()
	fm := fake.New(fake.WithShapeEnv(env))
	defer c.Push(fm)()

	x, err := fm.FromTensorSymbolic(mat(t, 4, 3, make([]float32, 12)...), env.CreateShape([]int{4, 3}))
	require.NoError(t, err)

	y, err := ops.Add(c, x, 1.0)
	require.NoError(t, err)
	assert.True(t, y.IsFake())
	assert.Equal(t, "float32[s0, s1]", y.TensorMeta().String())

	n, err := ops.Numel(c, y)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n.(*symbolic.SymInt).Hint())

	flat, err := ops.View(c, y, n)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{12}, flat.Shape())

	_, err = ops.Item(c, y)
	assert.Error(t, err)
}
