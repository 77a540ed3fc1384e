// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Tensor is a real or fake tensor.
type Tensor = tensor.Tensor

// Like is any tensor-like value an operator accepts.
type Like = tensor.Like

// RawTensor is the storage of a real tensor.
type RawTensor = tensor.RawTensor

// Meta describes a tensor without its data.
type Meta = tensor.Meta

// Shape is a concrete tensor shape.
type Shape = tensor.Shape

// DataType identifies the element type.
type DataType = tensor.DataType

// DType is the constraint over Go element types.
type DType = tensor.DType

// Device identifies where tensor data lives.
type Device = tensor.Device

// Context carries the active dispatch modes. Every operator takes one.
type Context = dispatch.Context

// Data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
)

// Devices.
const (
	CPU        = tensor.CPU
	MetaDevice = tensor.MetaDevice
)

// FromSlice creates a CPU tensor that owns a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func FromSlice[T DType](data []T, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// FromFloat64s creates a CPU tensor of the given dtype from float64 values.
func FromFloat64s(values []float64, shape Shape, dtype DataType) (*Tensor, error) {
	return tensor.FromFloat64s(values, shape, dtype)
}

// FromRaw wraps raw storage in a tensor.
func FromRaw(raw *RawTensor) *Tensor {
	return tensor.FromRaw(raw)
}

// NewRaw allocates zeroed storage.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// ParseDataType parses a dtype name such as "float32".
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// BroadcastShapes returns the broadcast shape of a and b.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
