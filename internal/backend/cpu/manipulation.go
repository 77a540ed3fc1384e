package cpu

import (
	"fmt"

	"github.com/born-ml/fxtrace/internal/tensor"
)

// Transpose swaps the two dimensions of a 2D tensor (0-d and 1-d are copied).
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 2 {
		return x.Clone()
	}
	if len(shape) != 2 {
		panic(fmt.Sprintf("t: expected a tensor with <= 2 dimensions, got %dD", len(shape)))
	}

	rows, cols := shape[0], shape[1]
	result := cpu.alloc("t", tensor.Shape{cols, rows}, x.DType())
	size := x.DType().Size()
	src, dst := x.Data(), result.Data()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			from := (i*cols + j) * size
			to := (j*rows + i) * size
			copy(dst[to:to+size], src[from:from+size])
		}
	}
	return result
}

// Reshape returns a copy of x with a new shape of the same element count.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result, err := x.WithShape(shape)
	if err != nil {
		panic(fmt.Sprintf("view: %v", err))
	}
	return result
}

// Chunk splits x into n chunks along dim. The last chunk may be smaller.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("chunk: dim %d out of range for %dD tensor", dim, len(shape)))
	}
	if n <= 0 {
		panic(fmt.Sprintf("chunk: number of chunks must be positive, got %d", n))
	}

	sizes := ChunkSizes(shape[dim], n)

	// Elements are laid out as [outer][dim][inner].
	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	inner := x.DType().Size()
	for _, d := range shape[dim+1:] {
		inner *= d
	}

	src := x.Data()
	chunks := make([]*tensor.RawTensor, len(sizes))
	offset := 0
	for c, size := range sizes {
		cs := shape.Clone()
		cs[dim] = size
		out := cpu.alloc("chunk", cs, x.DType())
		dst := out.Data()
		for o := 0; o < outer; o++ {
			from := (o*shape[dim] + offset) * inner
			to := o * size * inner
			copy(dst[to:to+size*inner], src[from:from+size*inner])
		}
		chunks[c] = out
		offset += size
	}
	return chunks
}

// ChunkSizes returns the chunk lengths of a dimension of the given size split
// into at most n chunks.
func ChunkSizes(size, n int) []int {
	if size == 0 {
		return []int{0}
	}
	step := (size + n - 1) / n
	var sizes []int
	for start := 0; start < size; start += step {
		sizes = append(sizes, min(step, size-start))
	}
	return sizes
}

// Cast converts x to dtype.
func (cpu *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}
	result := cpu.alloc("to", x.Shape(), dtype)
	if err := result.SetFloat64s(x.Float64s()); err != nil {
		panic(fmt.Sprintf("to: %v", err))
	}
	return result
}
