package tensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/fxtrace/internal/slot"
	"github.com/born-ml/fxtrace/internal/symbolic"
)

// ErrNoStorage is returned when reading data out of a fake tensor.
var ErrNoStorage = errors.New("tensor has no storage")

// Meta summarizes a tensor without its data.
type Meta struct {
	DType  DataType
	Shape  Shape              // concrete sizes; example sizes for symbolic tensors
	Sym    []*symbolic.SymInt // symbolic sizes, nil unless traced symbolically
	Device Device
}

// IsSymbolic reports whether the sizes are symbolic.
func (m Meta) IsSymbolic() bool {
	return m.Sym != nil
}

// Sizes returns the sizes as symbolic.Int values.
func (m Meta) Sizes() []symbolic.Int {
	out := make([]symbolic.Int, len(m.Shape))
	for i, d := range m.Shape {
		if m.Sym != nil {
			out[i] = symbolic.Symbolic(m.Sym[i])
		} else {
			out[i] = symbolic.Concrete(int64(d))
		}
	}
	return out
}

// MetaFromSizes builds a Meta from possibly symbolic sizes.
func MetaFromSizes(dtype DataType, device Device, sizes []symbolic.Int) Meta {
	m := Meta{DType: dtype, Device: device, Shape: make(Shape, len(sizes))}
	for i, s := range sizes {
		m.Shape[i] = int(s.Hint())
		if s.IsSymbolic() {
			if m.Sym == nil {
				m.Sym = make([]*symbolic.SymInt, len(sizes))
			}
			m.Sym[i] = s.Sym()
		}
	}
	if m.Sym != nil {
		env := envOf(m.Sym)
		for i, s := range m.Sym {
			if s == nil {
				m.Sym[i] = symbolic.ConstInt(env, int64(m.Shape[i]))
			}
		}
	}
	return m
}

func envOf(syms []*symbolic.SymInt) *symbolic.ShapeEnv {
	for _, s := range syms {
		if s != nil && s.Env() != nil {
			return s.Env()
		}
	}
	return nil
}

func (m Meta) String() string {
	dims := make([]string, len(m.Shape))
	for i, s := range m.Sizes() {
		dims[i] = s.String()
	}
	return fmt.Sprintf("%s[%s]", m.DType, strings.Join(dims, ", "))
}

// Like is implemented by every tensor-like value. The tracer only knows how
// to handle *Tensor; other implementations are declined unless some tracer
// already tracks them.
type Like interface {
	slot.Value
	TensorMeta() Meta
}

// Tensor is a tracked tensor value. A real tensor owns a RawTensor; a fake
// tensor carries only its Meta and never allocates storage.
type Tensor struct {
	slot.Ident

	raw   *RawTensor
	meta  Meta
	param bool
	owner any
}

func newTensor(raw *RawTensor, meta Meta, owner any) *Tensor {
	t := &Tensor{raw: raw, meta: meta, owner: owner}
	t.Ident = slot.NewIdent(t)
	return t
}

// FromRaw wraps storage into a real tensor.
func FromRaw(raw *RawTensor) *Tensor {
	return newTensor(raw, Meta{DType: raw.DType(), Shape: raw.Shape().Clone(), Device: raw.Device()}, nil)
}

// FromSlice creates a real tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	raw, err := NewRaw(shape, inferDataType[T](), CPU)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		copy(asSlice[T](raw), data)
	}
	return FromRaw(raw), nil
}

// FromFloat64s creates a real tensor of the given dtype from float64 values.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*Tensor, error) {
	raw, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		return nil, err
	}
	if err := raw.SetFloat64s(values); err != nil {
		return nil, err
	}
	return FromRaw(raw), nil
}

// NewFake creates a metadata-only tensor. owner identifies the fake session
// that produced it.
func NewFake(meta Meta, owner any) *Tensor {
	meta.Shape = meta.Shape.Clone()
	return newTensor(nil, meta, owner)
}

// NewParameter marks t as a trainable parameter and returns it.
func NewParameter(t *Tensor) *Tensor {
	t.param = true
	return t
}

// IsParameter reports whether t was created through NewParameter.
func (t *Tensor) IsParameter() bool {
	return t.param
}

// IsFake reports whether t has no storage.
func (t *Tensor) IsFake() bool {
	return t.raw == nil
}

// FakeOwner returns the fake session that produced t, nil for real tensors.
func (t *Tensor) FakeOwner() any {
	return t.owner
}

// Raw returns the storage, nil for fake tensors.
func (t *Tensor) Raw() *RawTensor {
	return t.raw
}

// TensorMeta returns the tensor's metadata.
func (t *Tensor) TensorMeta() Meta {
	return t.meta
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.meta.DType
}

// Shape returns the concrete sizes (example sizes for symbolic tensors).
func (t *Tensor) Shape() Shape {
	return t.meta.Shape
}

// Device returns the tensor's device.
func (t *Tensor) Device() Device {
	return t.meta.Device
}

// Dim returns the number of dimensions.
func (t *Tensor) Dim() int {
	return len(t.meta.Shape)
}

// Size returns the size of dimension i, symbolic if t has a symbolic shape.
// Negative indices count from the end.
func (t *Tensor) Size(i int) symbolic.Int {
	if i < 0 {
		i += t.Dim()
	}
	return t.meta.Sizes()[i]
}

// Sizes returns all sizes.
func (t *Tensor) Sizes() []symbolic.Int {
	return t.meta.Sizes()
}

// NumElements returns the number of elements (example count when symbolic).
func (t *Tensor) NumElements() int {
	return t.meta.Shape.NumElements()
}

// Float64s returns the elements converted to float64.
func (t *Tensor) Float64s() ([]float64, error) {
	if t.raw == nil {
		return nil, fmt.Errorf("%v: %w", t, ErrNoStorage)
	}
	return t.raw.Float64s(), nil
}

// Item returns the value of a single-element tensor.
func (t *Tensor) Item() (float64, error) {
	if t.NumElements() != 1 {
		return 0, fmt.Errorf("item() needs a single element tensor, got shape %v", t.Shape())
	}
	v, err := t.Float64s()
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Clone returns a deep copy with a fresh identity. Parameters clone to plain
// tensors.
func (t *Tensor) Clone() *Tensor {
	if t.raw == nil {
		return NewFake(t.meta, t.owner)
	}
	return FromRaw(t.raw.Clone())
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	kind := "Tensor"
	switch {
	case t.param:
		kind = "Parameter"
	case t.raw == nil:
		kind = "FakeTensor"
	}
	return fmt.Sprintf("%s(%s, device=%s)", kind, t.meta, t.meta.Device)
}
