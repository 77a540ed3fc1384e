package cpu

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/fxtrace/internal/tensor"
)

// Full creates a tensor filled with value.
func (cpu *CPUBackend) Full(shape tensor.Shape, value float64, dtype tensor.DataType) *tensor.RawTensor {
	result := cpu.alloc("full", shape, dtype)
	values := make([]float64, shape.NumElements())
	for i := range values {
		values[i] = value
	}
	if err := result.SetFloat64s(values); err != nil {
		panic(fmt.Sprintf("full: %v", err))
	}
	return result
}

// Randn creates a tensor of standard normal samples drawn from rng.
func (cpu *CPUBackend) Randn(shape tensor.Shape, dtype tensor.DataType, rng *rand.Rand) *tensor.RawTensor {
	if !dtype.IsFloat() {
		panic(fmt.Sprintf("randn: unsupported dtype %s", dtype))
	}
	result := cpu.alloc("randn", shape, dtype)
	values := make([]float64, shape.NumElements())
	for i := range values {
		values[i] = rng.NormFloat64()
	}
	if err := result.SetFloat64s(values); err != nil {
		panic(fmt.Sprintf("randn: %v", err))
	}
	return result
}
