package tensor

import (
	"errors"
	"testing"

	"github.com/born-ml/fxtrace/internal/symbolic"
)

func assertEqualShape(t *testing.T, expected, actual Shape, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected shape %v, got %v", msg, expected, actual)
	}
}

func TestDataTypeRoundTrip(t *testing.T) {
	tests := []struct {
		dtype DataType
		str   string
		size  int
	}{
		{Float32, "float32", 4},
		{Float64, "float64", 8},
		{Int32, "int32", 4},
		{Int64, "int64", 8},
		{Uint8, "uint8", 1},
		{Bool, "bool", 1},
	}

	for _, tt := range tests {
		if got := tt.dtype.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
		got, err := ParseDataType(tt.str)
		if err != nil || got != tt.dtype {
			t.Errorf("ParseDataType(%q) = %v, %v", tt.str, got, err)
		}
	}

	if _, err := ParseDataType("complex64"); err == nil {
		t.Error("expected error for unknown dtype")
	}
}

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{3}, 3},
		{Shape{2, 3, 4}, 24},
		{Shape{2, 0}, 0},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{Shape{2, 3}, Shape{2, 3}, Shape{2, 3}, false, false},
		{Shape{2, 3}, Shape{3}, Shape{2, 3}, true, false},
		{Shape{4, 1}, Shape{1, 5}, Shape{4, 5}, true, false},
		{Shape{2, 3}, Shape{4}, nil, false, true},
	}
	for _, tt := range tests {
		got, broadcast, err := BroadcastShapes(tt.a, tt.b)
		if tt.wantErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v): expected error", tt.a, tt.b)
			}
			continue
		}
		if err != nil {
			t.Fatalf("BroadcastShapes(%v, %v): %v", tt.a, tt.b, err)
		}
		assertEqualShape(t, tt.want, got, "broadcast")
		if broadcast != tt.broadcast {
			t.Errorf("BroadcastShapes(%v, %v) broadcast = %v", tt.a, tt.b, broadcast)
		}
	}
}

func TestFromSlice(t *testing.T) {
	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{2, 3}, x.Shape(), "shape")
	if x.DType() != Float32 || x.IsFake() || x.Dim() != 2 {
		t.Errorf("unexpected tensor %v", x)
	}
	vals, err := x.Float64s()
	if err != nil {
		t.Fatal(err)
	}
	if vals[5] != 6 {
		t.Errorf("vals[5] = %v, want 6", vals[5])
	}

	if _, err := FromSlice([]float32{1, 2}, Shape{3}); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestCloneHasFreshIdentity(t *testing.T) {
	x, err := FromFloat64s([]float64{1, 2}, Shape{2}, Float64)
	if err != nil {
		t.Fatal(err)
	}
	p := NewParameter(x)
	c := p.Clone()

	if c.SlotID() == p.SlotID() {
		t.Error("clone shares identity with original")
	}
	if c.IsParameter() {
		t.Error("clone of a parameter should be a plain tensor")
	}
	c.Raw().AsFloat64()[0] = 10
	if p.Raw().AsFloat64()[0] != 1 {
		t.Error("clone shares storage with original")
	}
}

func TestFakeTensor(t *testing.T) {
	owner := new(int)
	f := NewFake(Meta{DType: Float32, Shape: Shape{2, 2}}, owner)

	if !f.IsFake() || f.FakeOwner() != owner {
		t.Fatalf("unexpected fake %v", f)
	}
	if _, err := f.Float64s(); !errors.Is(err, ErrNoStorage) {
		t.Errorf("Float64s() err = %v, want ErrNoStorage", err)
	}
	if _, err := f.Item(); err == nil {
		t.Error("Item() on a 4-element tensor should fail")
	}
	if got := f.String(); got != "FakeTensor(float32[2, 2], device=cpu)" {
		t.Errorf("String() = %q", got)
	}
}

func TestMetaFromSymbolicSizes(t *testing.T) {
	env := symbolic.NewShapeEnv()
	s0 := env.CreateSymbol(4)
	m := MetaFromSizes(Float32, CPU, []symbolic.Int{symbolic.Symbolic(s0), symbolic.Concrete(3)})

	if !m.IsSymbolic() {
		t.Fatal("expected symbolic meta")
	}
	assertEqualShape(t, Shape{4, 3}, m.Shape, "hint shape")
	if got := m.String(); got != "float32[s0, 3]" {
		t.Errorf("String() = %q", got)
	}
	if c, ok := m.Sym[1].Constant(); !ok || c != 3 {
		t.Errorf("concrete dim = %v, %v", c, ok)
	}

	plain := MetaFromSizes(Int64, CPU, []symbolic.Int{symbolic.Concrete(2)})
	if plain.IsSymbolic() {
		t.Error("concrete sizes should not produce a symbolic meta")
	}
}

func TestItem(t *testing.T) {
	x, err := FromFloat64s([]float64{2.5}, Shape{}, Float32)
	if err != nil {
		t.Fatal(err)
	}
	v, err := x.Item()
	if err != nil || v != 2.5 {
		t.Errorf("Item() = %v, %v", v, err)
	}
}
