package nn_test

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/nn"
	"github.com/born-ml/fxtrace/internal/tensor"
)

func newRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-5
}

// TestParameter tests Parameter creation and methods.
func TestParameter(t *testing.T) {
	data, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3})
	param := nn.NewParameter("test_param", data)

	if param.Name() != "test_param" {
		t.Errorf("Name() = %s, want test_param", param.Name())
	}
	if param.Tensor() != data {
		t.Error("Tensor() should return the original tensor")
	}
	if !param.Tensor().IsParameter() {
		t.Error("NewParameter should mark the tensor as a parameter")
	}
}

// TestLinear_Creation tests Linear layer initialization.
func TestLinear_Creation(t *testing.T) {
	layer := nn.NewLinear(10, 5, newRNG())

	if layer.InFeatures() != 10 || layer.OutFeatures() != 5 {
		t.Errorf("features = %d, %d, want 10, 5", layer.InFeatures(), layer.OutFeatures())
	}

	weight := layer.Weight().Tensor()
	if !weight.Shape().Equal(tensor.Shape{5, 10}) {
		t.Errorf("Weight shape = %v, want [5 10]", weight.Shape())
	}

	bound := math.Sqrt(6.0 / 15.0)
	vals, _ := weight.Float64s()
	for i, v := range vals {
		if math.Abs(v) > bound {
			t.Fatalf("weight[%d] = %v outside Xavier bound %v", i, v, bound)
		}
	}

	bias, _ := layer.Bias().Tensor().Float64s()
	for i, v := range bias {
		if v != 0 {
			t.Errorf("bias[%d] = %v, want 0", i, v)
		}
	}

	params := layer.NamedParameters()
	if len(params) != 2 || params[0].Name != "weight" || params[1].Name != "bias" {
		t.Errorf("NamedParameters() = %v", params)
	}
}

// TestLinear_Forward checks y = x @ W.T + b.
func TestLinear_Forward(t *testing.T) {
	c := dispatch.New(context.Background())
	layer := nn.NewLinear(2, 2, newRNG())

	w, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b, _ := tensor.FromSlice([]float32{0.5, -0.5}, tensor.Shape{2})
	err := layer.LoadStateDict(map[string]*tensor.RawTensor{"weight": w.Raw(), "bias": b.Raw()})
	if err != nil {
		t.Fatal(err)
	}

	x, _ := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2})
	y, err := layer.Forward(c, x)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := y.Float64s()
	want := []float64{3.5, 6.5}
	for i := range want {
		if !floatEqual(got[i], want[i]) {
			t.Errorf("y[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	bad, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3})
	if _, err := layer.Forward(c, bad); err == nil {
		t.Error("expected feature mismatch error")
	}
	flat, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
	if _, err := layer.Forward(c, flat); err == nil {
		t.Error("expected rank error")
	}
}

func TestLinear_LoadStateDictErrors(t *testing.T) {
	layer := nn.NewLinear(2, 2, newRNG())

	if err := layer.LoadStateDict(map[string]*tensor.RawTensor{}); err == nil {
		t.Error("expected missing weight error")
	}

	w, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2})
	if err := layer.LoadStateDict(map[string]*tensor.RawTensor{"weight": w.Raw()}); err == nil {
		t.Error("expected shape mismatch error")
	}

	w64, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	if err := layer.LoadStateDict(map[string]*tensor.RawTensor{"weight": w64.Raw()}); err == nil {
		t.Error("expected dtype mismatch error")
	}
}

// TestActivations tests ReLU and Tanh modules.
func TestActivations(t *testing.T) {
	c := dispatch.New(context.Background())
	x, _ := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{3})

	y, err := nn.NewReLU().Forward(c, x)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := y.Float64s()
	if got[0] != 0 || got[2] != 2 {
		t.Errorf("ReLU = %v", got)
	}

	y, err = nn.NewTanh().Forward(c, x)
	if err != nil {
		t.Fatal(err)
	}
	got, _ = y.Float64s()
	if !floatEqual(got[2], math.Tanh(2)) {
		t.Errorf("Tanh(2) = %v", got[2])
	}

	if nn.NewReLU().NamedParameters() != nil || nn.NewTanh().NamedParameters() != nil {
		t.Error("activations have no parameters")
	}
}

// TestSequential tests chaining, naming and state dicts.
func TestSequential(t *testing.T) {
	c := dispatch.New(context.Background())
	rng := newRNG()
	model := nn.NewSequential(
		nn.NewLinear(3, 4, rng),
		nn.NewReLU(),
	)
	model.Add(nn.NewLinear(4, 2, rng))

	if model.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", model.Len())
	}
	if _, ok := model.Module(1).(*nn.ReLU); !ok {
		t.Errorf("Module(1) = %T, want *nn.ReLU", model.Module(1))
	}

	var names []string
	for _, p := range model.NamedParameters() {
		names = append(names, p.Name)
	}
	want := []string{"0.weight", "0.bias", "2.weight", "2.bias"}
	if len(names) != len(want) {
		t.Fatalf("NamedParameters() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("param %d = %s, want %s", i, names[i], want[i])
		}
	}

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y, err := model.Forward(c, x)
	if err != nil {
		t.Fatal(err)
	}
	if !y.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("output shape = %v, want [2 2]", y.Shape())
	}

	state := model.StateDict()
	if len(state) != 4 {
		t.Fatalf("StateDict() has %d entries, want 4", len(state))
	}

	clone := nn.NewSequential(nn.NewLinear(3, 4, newRNG()), nn.NewReLU(), nn.NewLinear(4, 2, newRNG()))
	if err := clone.LoadStateDict(state); err != nil {
		t.Fatal(err)
	}
	y2, err := clone.Forward(c, x)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := y.Float64s()
	b, _ := y2.Float64s()
	for i := range a {
		if !floatEqual(a[i], b[i]) {
			t.Errorf("loaded model output[%d] = %v, want %v", i, b[i], a[i])
		}
	}

	bad, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2})
	if _, err := model.Forward(c, bad); err == nil {
		t.Error("expected an error from the first layer")
	}
}

func TestSequential_ModulePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out of range index")
		}
	}()
	nn.NewSequential().Module(0)
}

// scalarCaller is a mode whose sub-module calls yield a non-tensor value.
type scalarCaller struct{}

func (scalarCaller) Dispatch(*dispatch.Context, *catalog.Operator, []any, map[string]any) (any, error) {
	return nil, dispatch.ErrNotImplemented
}

func (scalarCaller) CallModule(any, func() (any, error)) (any, error) {
	return 1.0, nil
}

// TestForward_NonTensorModuleResult tests that a module call yielding a
// non-tensor is an error rather than a nil tensor.
func TestForward_NonTensorModuleResult(t *testing.T) {
	c := dispatch.New(context.Background())
	defer c.Push(scalarCaller{})()

	x, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2})
	layers := []nn.Module{nn.NewLinear(2, 2, newRNG()), nn.NewReLU(), nn.NewTanh()}
	for _, m := range layers {
		out, err := m.Forward(c, x)
		if err == nil {
			t.Errorf("%T.Forward: expected an error, got %v", m, out)
		}
		if out != nil {
			t.Errorf("%T.Forward: expected a nil tensor, got %v", m, out)
		}
	}
}
