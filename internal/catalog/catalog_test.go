package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// direct runs every call straight through the operator and records it.
type direct struct {
	calls []string
}

func (d *direct) Call(op *Operator, args []any, kwargs map[string]any) (any, error) {
	d.calls = append(d.calls, op.Name)
	return op.Run(args, kwargs)
}

func (d *direct) SymCall(op *Operator, args []any, kwargs map[string]any) (any, error) {
	d.calls = append(d.calls, op.Name)
	return op.Run(args, kwargs)
}

func fromSlice(t *testing.T, data []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

func values(t *testing.T, v any) []float64 {
	t.Helper()
	x, ok := v.(*tensor.Tensor)
	require.True(t, ok, "expected a tensor, got %T", v)
	out, err := x.Float64s()
	require.NoError(t, err)
	return out
}

func fakeOf(x *tensor.Tensor, owner any) *tensor.Tensor {
	return tensor.NewFake(x.TensorMeta(), owner)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"add", "add_", "relu", "addmm", "linear", "item", "sym_mul", "lift_fresh_copy"} {
		op, ok := r.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, op.Name)
	}
	_, ok := r.Get("conv2d")
	assert.False(t, ok)

	names := r.Names()
	assert.IsNonDecreasing(t, names)

	custom := &Operator{Name: "add"}
	r.Register(custom)
	op, _ := r.Get("add")
	assert.Same(t, custom, op)

	op, _ = Default.Get("add")
	assert.Same(t, Add, op)
}

func TestTags(t *testing.T) {
	assert.True(t, Item.Has(DataDependentOutput))
	assert.True(t, Randn.Has(NondeterministicSeeded))
	assert.True(t, Randn.Has(Factory))
	assert.True(t, AddInp.Has(Inplace))
	assert.True(t, Device.Has(Metadata))
	assert.True(t, Size.Has(SymbolicShape))
	assert.True(t, SymMul.Has(Symbolic))
	assert.False(t, Add.Has(Inplace))

	assert.Equal(t, "none", Tag(0).String())
	assert.Equal(t, "[factory]", Factory.String())
	assert.Equal(t, "aten.add", Add.String())
}

func TestBinaryKernels(t *testing.T) {
	a := fromSlice(t, []float32{1, 2, 3, 4}, 2, 2)
	b := fromSlice(t, []float32{10, 20}, 2)

	tests := []struct {
		op    *Operator
		other any
		want  []float64
	}{
		{Add, b, []float64{11, 22, 13, 24}},
		{Sub, 1.0, []float64{0, 1, 2, 3}},
		{Mul, 2, []float64{2, 4, 6, 8}},
		{Div, b, []float64{0.1, 0.1, 0.3, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.op.Name, func(t *testing.T) {
			out, err := tt.op.Run([]any{a, tt.other}, nil)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, values(t, out), 1e-6)
		})
	}

	_, err := Add.Run([]any{a, "x"}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = Add.Run([]any{a}, nil)
	assert.Error(t, err)
}

func TestAddInplace(t *testing.T) {
	a := fromSlice(t, []float32{1, 2}, 2)
	out, err := AddInp.Run([]any{a, fromSlice(t, []float32{1, 1}, 2)}, nil)
	require.NoError(t, err)
	assert.Same(t, a, out)
	assert.Equal(t, []float64{2, 3}, values(t, a))

	_, err = AddInp.Run([]any{a, 1.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 4.5}, values(t, a))
}

func TestMetaFunctions(t *testing.T) {
	owner := new(int)
	a := fakeOf(fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3), owner)
	b := fakeOf(fromSlice(t, []float32{1, 2, 3}, 3, 1), owner)

	tests := []struct {
		name  string
		op    *Operator
		args  []any
		shape tensor.Shape
	}{
		{"matmul", MatMul, []any{a, b}, tensor.Shape{2, 1}},
		{"t", T, []any{a}, tensor.Shape{3, 2}},
		{"view", View, []any{a, []any{3, -1}}, tensor.Shape{3, 2}},
		{"sum", Sum, []any{a}, tensor.Shape{}},
		{"relu", ReLU, []any{a}, tensor.Shape{2, 3}},
		{"broadcast", Add, []any{a, fakeOf(fromSlice(t, []float32{1, 2, 3}, 3), owner)}, tensor.Shape{2, 3}},
		{"zeros", Zeros, []any{[]int{4, 2}, a}, tensor.Shape{4, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.op.Run(tt.args, nil)
			require.NoError(t, err)
			x := out.(*tensor.Tensor)
			assert.True(t, x.IsFake())
			assert.Equal(t, owner, x.FakeOwner())
			assert.Equal(t, tt.shape, x.Shape())
		})
	}

	_, err := MatMul.Run([]any{a, a}, nil)
	assert.Error(t, err)
	_, err = Item.Run([]any{fakeOf(fromSlice(t, []float32{1}, 1), owner)}, nil)
	assert.ErrorIs(t, err, tensor.ErrNoStorage)
}

func TestMetaMatchesKernel(t *testing.T) {
	x := fromSlice(t, []float32{1, -2, 3, -4, 5, -6}, 2, 3)
	w := fromSlice(t, []float32{1, 0, 0, 1, 1, 1}, 2, 3)
	bias := fromSlice(t, []float32{1, 2}, 2)

	ops := []struct {
		op   *Operator
		args []any
	}{
		{Addmm, []any{bias, x, fromSlice(t, []float32{1, 0, 0, 1, 1, 1}, 3, 2)}},
		{Chunk, []any{x, 2, 1}},
		{To, []any{x, tensor.Float64}},
		{Clone, []any{w}},
		{Exp, []any{x}},
	}
	for _, tt := range ops {
		t.Run(tt.op.Name, func(t *testing.T) {
			kernel, err := tt.op.Run(tt.args, nil)
			require.NoError(t, err)

			owner := new(int)
			fakeArgs := make([]any, len(tt.args))
			for i, a := range tt.args {
				if x, ok := a.(*tensor.Tensor); ok {
					a = fakeOf(x, owner)
				}
				fakeArgs[i] = a
			}
			meta, err := tt.op.Run(fakeArgs, nil)
			require.NoError(t, err)

			assert.Equal(t, metas(kernel), metas(meta))
		})
	}
}

func metas(v any) []tensor.Meta {
	switch x := v.(type) {
	case *tensor.Tensor:
		m := x.TensorMeta()
		return []tensor.Meta{{DType: m.DType, Shape: m.Shape, Device: m.Device}}
	case []any:
		var out []tensor.Meta
		for _, e := range x {
			out = append(out, metas(e)...)
		}
		return out
	default:
		return nil
	}
}

func TestChunk(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5}, 5)
	out, err := Chunk.Run([]any{x, 2}, nil)
	require.NoError(t, err)
	pieces := out.([]any)
	require.Len(t, pieces, 2)
	assert.Equal(t, []float64{1, 2, 3}, values(t, pieces[0]))
	assert.Equal(t, []float64{4, 5}, values(t, pieces[1]))

	_, err = Chunk.Run([]any{x, 0}, nil)
	assert.Error(t, err)
}

func TestSymbolicChunkMeta(t *testing.T) {
	env := symbolic.NewShapeEnv()
	s0 := env.CreateSymbol(5)
	x := tensor.NewFake(tensor.MetaFromSizes(tensor.Float32, tensor.CPU, []symbolic.Int{symbolic.Symbolic(s0)}), env)

	out, err := Chunk.Run([]any{x, 2}, nil)
	require.NoError(t, err)
	pieces := out.([]any)
	require.Len(t, pieces, 2)
	assert.Equal(t, "float32[((s0 + 1) // 2)]", pieces[0].(*tensor.Tensor).TensorMeta().String())
	assert.Equal(t, tensor.Shape{2}, pieces[1].(*tensor.Tensor).Shape())
	assert.Equal(t, "float32[(s0 - (((s0 + 1) // 2) * 1))]", pieces[1].(*tensor.Tensor).TensorMeta().String())
}

func TestSizeAndNumel(t *testing.T) {
	x := fromSlice(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	out, err := Size.Run([]any{x}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, out)

	out, err = Size.Run([]any{x, -1}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	_, err = SymSize.Run([]any{x}, nil)
	assert.Error(t, err)
	_, err = Size.Run([]any{x, 2}, nil)
	assert.Error(t, err)

	out, err = Numel.Run([]any{x}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), out)

	out, err = Device.Run([]any{x}, nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.CPU, out)
}

func TestNumelDecomposition(t *testing.T) {
	env := symbolic.NewShapeEnv()
	sizes := []symbolic.Int{symbolic.Symbolic(env.CreateSymbol(4)), symbolic.Concrete(3)}
	x := tensor.NewFake(tensor.MetaFromSizes(tensor.Float32, tensor.CPU, sizes), env)

	c := &direct{}
	out, err := Numel.Decomposition(c, []any{x}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sym_mul", "sym_mul"}, c.calls)
	assert.Equal(t, int64(12), out.(*symbolic.SymInt).Hint())

	_, err = Numel.Decomposition(c, []any{fromSlice(t, []float32{1}, 1)}, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestCoreDecompositions(t *testing.T) {
	core := CoreDecompositions()
	bias := fromSlice(t, []float32{1, 1}, 2)
	a := fromSlice(t, []float32{1, 2, 3, 4}, 2, 2)
	b := fromSlice(t, []float32{2, 0, 0, 2}, 2, 2)

	c := &direct{}
	out, err := core[Addmm](c, []any{bias, a, b}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"matmul", "add"}, c.calls)
	want, err := Addmm.Run([]any{bias, a, b}, nil)
	require.NoError(t, err)
	assert.Equal(t, values(t, want), values(t, out))

	c = &direct{}
	out, err = core[Div](c, []any{a, 4.0}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mul"}, c.calls)
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, values(t, out))

	_, err = core[Div](c, []any{a, b}, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = core[Div](c, []any{a, 0.0}, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestLinearDecomposition(t *testing.T) {
	x := fromSlice(t, []float32{1, 2}, 1, 2)
	w := fromSlice(t, []float32{1, 0, 0, 1, 1, 1}, 3, 2)
	bias := fromSlice(t, []float32{0, 0, 1}, 3)

	c := &direct{}
	out, err := Linear.Decomposition(c, []any{x, w, bias}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "matmul", "add"}, c.calls)
	assert.Equal(t, []float64{1, 2, 4}, values(t, out))

	c = &direct{}
	_, err = Linear.Decomposition(c, []any{x, w, nil}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "matmul"}, c.calls)

	_, err = Linear.Run([]any{x, w}, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCreationKernels(t *testing.T) {
	out, err := Ones.Run([]any{[]any{2, 2}}, map[string]any{"dtype": tensor.Float64})
	require.NoError(t, err)
	x := out.(*tensor.Tensor)
	assert.Equal(t, tensor.Float64, x.DType())
	assert.Equal(t, []float64{1, 1, 1, 1}, values(t, x))

	r1, err := Randn.Run([]any{[]int{3}}, map[string]any{"seed": 7})
	require.NoError(t, err)
	r2, err := Randn.Run([]any{[]int{3}}, map[string]any{"seed": 7})
	require.NoError(t, err)
	assert.Equal(t, values(t, r1), values(t, r2))

	src := fromSlice(t, []float32{3}, 1)
	out, err = LiftFresh.Run([]any{src}, nil)
	require.NoError(t, err)
	assert.Same(t, src, out)
	out, err = LiftFreshCopy.Run([]any{src}, nil)
	require.NoError(t, err)
	assert.NotSame(t, src, out)

	out, err = Item.Run([]any{src}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, out)
	n, err := tensor.FromSlice([]int64{3}, tensor.Shape{1})
	require.NoError(t, err)
	out, err = Item.Run([]any{n}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)
}

func TestSymOperators(t *testing.T) {
	env := symbolic.NewShapeEnv()
	s0 := env.CreateSymbol(4)

	out, err := SymMul.Run([]any{s0, 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, "(s0 * 2)", out.(*symbolic.SymInt).Expr())

	out, err = SymFloorDiv.Run([]any{int64(7), int64(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	out, err = SymTrueDiv.Run([]any{s0, 8}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.(*symbolic.SymFloat).Hint())

	_, err = SymAdd.Run([]any{s0}, nil)
	assert.Error(t, err)
}

func TestRunKernelRecoversPanics(t *testing.T) {
	op := &Operator{Name: "boom", Kernel: func([]any, map[string]any) (any, error) { panic("bad input") }}
	_, err := op.Run(nil, nil)
	assert.EqualError(t, err, "aten.boom: bad input")

	_, err = (&Operator{Name: "nothing"}).Run(nil, nil)
	assert.ErrorIs(t, err, ErrUnsupported)
}
