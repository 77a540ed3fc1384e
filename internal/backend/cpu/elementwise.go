package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/fxtrace/internal/tensor"
)

// BinaryOp identifies an element-wise binary operation.
type BinaryOp int

// Element-wise binary operations.
const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	default:
		return "unknown"
	}
}

func apply[T number](op BinaryOp, x, y T) T {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	default:
		return x / y
	}
}

// Binary performs an element-wise operation with NumPy-style broadcasting.
func (cpu *CPUBackend) Binary(op BinaryOp, a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := cpu.alloc(op.String(), outShape, a.DType())
	switch a.DType() {
	case tensor.Float32:
		binaryBroadcast(op, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape)
	case tensor.Float64:
		binaryBroadcast(op, result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape)
	case tensor.Int32:
		binaryBroadcast(op, result.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape)
	case tensor.Int64:
		binaryBroadcast(op, result.AsInt64(), a.AsInt64(), b.AsInt64(), a.Shape(), b.Shape(), outShape)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, a.DType()))
	}
	return result
}

// BinaryInplace computes a = a op b, broadcasting b to a's shape.
func (cpu *CPUBackend) BinaryInplace(op BinaryOp, a, b *tensor.RawTensor) {
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil || !outShape.Equal(a.Shape()) {
		panic(fmt.Sprintf("%s_: cannot broadcast %v into %v", op, b.Shape(), a.Shape()))
	}
	result := cpu.Binary(op, a, b)
	copy(a.Data(), result.Data())
}

// Scalar performs an element-wise operation between x and a scalar.
func (cpu *CPUBackend) Scalar(op BinaryOp, x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := cpu.alloc(op.String()+"Scalar", x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		scalarOp(op, result.AsFloat32(), x.AsFloat32(), float32(scalar))
	case tensor.Float64:
		scalarOp(op, result.AsFloat64(), x.AsFloat64(), scalar)
	case tensor.Int32:
		scalarOp(op, result.AsInt32(), x.AsInt32(), int32(scalar))
	case tensor.Int64:
		scalarOp(op, result.AsInt64(), x.AsInt64(), int64(scalar))
	default:
		panic(fmt.Sprintf("%sScalar: unsupported dtype %s", op, x.DType()))
	}
	return result
}

func scalarOp[T number](op BinaryOp, out, in []T, s T) {
	for i, v := range in {
		out[i] = apply(op, v, s)
	}
}

func binaryBroadcast[T number](op BinaryOp, out, a, b []T, aShape, bShape, outShape tensor.Shape) {
	if aShape.Equal(bShape) {
		for i := range out {
			out[i] = apply(op, a[i], b[i])
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	for i := range out {
		out[i] = apply(op, a[flatIndex(i, outStrides, aStrides)], b[flatIndex(i, outStrides, bStrides)])
	}
}

// broadcastStrides computes strides for reading inShape as outShape.
// Broadcast and padded dimensions get stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)
	offset := outDim - len(inShape)
	orig := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		j := i - offset
		if j < 0 || inShape[j] == 1 {
			continue
		}
		strides[i] = orig[j]
	}
	return strides
}

func flatIndex(outIdx int, outStrides, inStrides []int) int {
	idx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		idx += coord * inStrides[i]
	}
	return idx
}

// UnaryOp identifies an element-wise unary operation.
type UnaryOp int

// Element-wise unary operations.
const (
	OpNeg UnaryOp = iota
	OpReLU
	OpExp
	OpTanh
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "neg"
	case OpReLU:
		return "relu"
	case OpExp:
		return "exp"
	case OpTanh:
		return "tanh"
	default:
		return "unknown"
	}
}

// Unary applies op element-wise.
func (cpu *CPUBackend) Unary(op UnaryOp, x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc(op.String(), x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		unary(op, result.AsFloat32(), x.AsFloat32())
	case tensor.Float64:
		unary(op, result.AsFloat64(), x.AsFloat64())
	case tensor.Int32:
		if op == OpExp || op == OpTanh {
			panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
		}
		unary(op, result.AsInt32(), x.AsInt32())
	case tensor.Int64:
		if op == OpExp || op == OpTanh {
			panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
		}
		unary(op, result.AsInt64(), x.AsInt64())
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
	}
	return result
}

func unary[T number](op UnaryOp, out, in []T) {
	for i, v := range in {
		switch op {
		case OpNeg:
			out[i] = -v
		case OpReLU:
			if v > 0 {
				out[i] = v
			}
		case OpExp:
			out[i] = T(math.Exp(float64(v)))
		case OpTanh:
			out[i] = T(math.Tanh(float64(v)))
		}
	}
}
