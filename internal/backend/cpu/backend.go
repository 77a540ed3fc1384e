// Package cpu implements the reference CPU kernels the operator catalog
// executes real tensors with.
//
// Like the rest of born's backends, kernels panic on malformed input; callers
// at the catalog boundary recover and turn the panic into an error.
package cpu

import (
	"fmt"

	"github.com/born-ml/fxtrace/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

func (cpu *CPUBackend) alloc(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}
