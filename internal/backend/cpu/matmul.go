package cpu

import (
	"fmt"

	"github.com/born-ml/fxtrace/internal/tensor"
)

// MatMul performs 2D matrix multiplication: C = A @ B.
// Shape: (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	if len(a.Shape()) != 2 || len(b.Shape()) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %dD and %dD", len(a.Shape()), len(b.Shape())))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", a.DType(), b.DType()))
	}

	M, K := a.Shape()[0], a.Shape()[1]
	K2, N := b.Shape()[0], b.Shape()[1]
	if K != K2 {
		panic(fmt.Sprintf("matmul: incompatible shapes %v @ %v", a.Shape(), b.Shape()))
	}

	result := cpu.alloc("matmul", tensor.Shape{M, N}, a.DType())
	switch a.DType() {
	case tensor.Float32:
		matmul(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), M, K, N)
	case tensor.Float64:
		matmul(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), M, K, N)
	case tensor.Int32:
		matmul(result.AsInt32(), a.AsInt32(), b.AsInt32(), M, K, N)
	case tensor.Int64:
		matmul(result.AsInt64(), a.AsInt64(), b.AsInt64(), M, K, N)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
	return result
}

// matmul uses the i-k-j loop order so the inner loop walks rows of b.
func matmul[T number](c, a, b []T, M, K, N int) {
	for i := 0; i < M; i++ {
		for k := 0; k < K; k++ {
			aik := a[i*K+k]
			for j := 0; j < N; j++ {
				c[i*N+j] += aik * b[k*N+j]
			}
		}
	}
}

// Sum reduces all elements to a 0-d tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("sum", tensor.Shape{}, x.DType())
	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sum(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sum(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sum(x.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = sum(x.AsInt64())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

func sum[T number](xs []T) T {
	var s T
	for _, v := range xs {
		s += v
	}
	return s
}
