package catalog

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/backend/cpu"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

var backend = cpu.New()

// Element-wise and reduction operators.
var (
	Add    = binaryOperator("add", cpu.OpAdd)
	Sub    = binaryOperator("sub", cpu.OpSub)
	Mul    = binaryOperator("mul", cpu.OpMul)
	Div    = binaryOperator("div", cpu.OpDiv)
	AddInp = &Operator{Name: "add_", Tags: Inplace, Kernel: addInplace, Meta: addInplaceMeta}
	Neg    = unaryOperator("neg", cpu.OpNeg)
	ReLU   = unaryOperator("relu", cpu.OpReLU)
	Exp    = unaryOperator("exp", cpu.OpExp)
	Tanh   = unaryOperator("tanh", cpu.OpTanh)
	Sum    = &Operator{Name: "sum", Kernel: sumKernel, Meta: sumMeta}
	MatMul = &Operator{Name: "matmul", Kernel: matmulKernel, Meta: matmulMeta}
)

// registerMathOps adds math operators to the registry.
func (r *Registry) registerMathOps() {
	for _, op := range []*Operator{Add, Sub, Mul, Div, AddInp, Neg, ReLU, Exp, Tanh, Sum, MatMul} {
		r.Register(op)
	}
}

// promote returns the result type of combining a and b.
func promote(a, b tensor.DataType) tensor.DataType {
	rank := func(dt tensor.DataType) int {
		switch dt {
		case tensor.Float64:
			return 5
		case tensor.Float32:
			return 4
		case tensor.Int64:
			return 3
		case tensor.Int32:
			return 2
		case tensor.Uint8:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func binaryResultType(name string, a tensor.DataType, other any) tensor.DataType {
	dt := a
	switch o := other.(type) {
	case *tensor.Tensor:
		dt = promote(a, o.DType())
	case float64, float32, *symbolic.SymFloat:
		if !a.IsFloat() {
			dt = tensor.Float32
		}
	}
	if name == "div" && !dt.IsFloat() {
		dt = tensor.Float32
	}
	return dt
}

func castTo(x *tensor.RawTensor, dt tensor.DataType) *tensor.RawTensor {
	if x.DType() == dt {
		return x
	}
	return backend.Cast(x, dt)
}

func binaryOperator(name string, bop cpu.BinaryOp) *Operator {
	return &Operator{
		Name: name,
		Kernel: func(args []any, _ map[string]any) (any, error) {
			a, err := tensorArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			if len(args) < 2 {
				return nil, errors.Errorf("%s requires 2 inputs, got %d", name, len(args))
			}
			dt := binaryResultType(name, a.DType(), args[1])
			if b, ok := args[1].(*tensor.Tensor); ok {
				return tensor.FromRaw(backend.Binary(bop, castTo(a.Raw(), dt), castTo(b.Raw(), dt))), nil
			}
			s, ok := scalarValue(args[1])
			if !ok {
				return nil, errors.Wrapf(ErrUnsupported, "%s: cannot combine a tensor with %T", name, args[1])
			}
			return tensor.FromRaw(backend.Scalar(bop, castTo(a.Raw(), dt), s)), nil
		},
		Meta: func(owner any, args []any, _ map[string]any) (any, error) {
			a, err := tensorArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			if len(args) < 2 {
				return nil, errors.Errorf("%s requires 2 inputs, got %d", name, len(args))
			}
			sizes := a.Sizes()
			if b, ok := args[1].(*tensor.Tensor); ok {
				sizes, err = symbolic.Broadcast(a.Sizes(), b.Sizes())
				if err != nil {
					return nil, errors.Wrap(err, name)
				}
			} else if _, ok := scalarValue(args[1]); !ok {
				return nil, errors.Wrapf(ErrUnsupported, "%s: cannot combine a tensor with %T", name, args[1])
			}
			dt := binaryResultType(name, a.DType(), args[1])
			return fake(owner, tensor.MetaFromSizes(dt, a.Device(), sizes)), nil
		},
	}
}

func addInplace(args []any, _ map[string]any) (any, error) {
	a, err := tensorArg("add_", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, errors.Errorf("add_ requires 2 inputs, got %d", len(args))
	}
	switch b := args[1].(type) {
	case *tensor.Tensor:
		backend.BinaryInplace(cpu.OpAdd, a.Raw(), castTo(b.Raw(), a.DType()))
	default:
		s, ok := scalarValue(b)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupported, "add_: cannot combine a tensor with %T", b)
		}
		copy(a.Raw().Data(), backend.Scalar(cpu.OpAdd, a.Raw(), s).Data())
	}
	return a, nil
}

func addInplaceMeta(_ any, args []any, _ map[string]any) (any, error) {
	a, err := tensorArg("add_", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, errors.Errorf("add_ requires 2 inputs, got %d", len(args))
	}
	if b, ok := args[1].(*tensor.Tensor); ok {
		sizes, err := symbolic.Broadcast(a.Sizes(), b.Sizes())
		if err != nil {
			return nil, errors.Wrap(err, "add_")
		}
		if len(sizes) != a.Dim() {
			return nil, errors.Errorf("add_: cannot broadcast %v into %v", b.TensorMeta(), a.TensorMeta())
		}
	}
	return a, nil
}

func unaryOperator(name string, uop cpu.UnaryOp) *Operator {
	return &Operator{
		Name: name,
		Kernel: func(args []any, _ map[string]any) (any, error) {
			x, err := tensorArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			return tensor.FromRaw(backend.Unary(uop, x.Raw())), nil
		},
		Meta: func(owner any, args []any, _ map[string]any) (any, error) {
			x, err := tensorArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			if !x.DType().IsFloat() && (uop == cpu.OpExp || uop == cpu.OpTanh) {
				return nil, errors.Errorf("%s: unsupported dtype %s", name, x.DType())
			}
			return fake(owner, x.TensorMeta()), nil
		},
	}
}

func sumKernel(args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("sum", args, 0)
	if err != nil {
		return nil, err
	}
	return tensor.FromRaw(backend.Sum(x.Raw())), nil
}

func sumMeta(owner any, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("sum", args, 0)
	if err != nil {
		return nil, err
	}
	return fake(owner, tensor.Meta{DType: x.DType(), Shape: tensor.Shape{}, Device: x.Device()}), nil
}

func matmulKernel(args []any, _ map[string]any) (any, error) {
	a, err := tensorArg("matmul", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := tensorArg("matmul", args, 1)
	if err != nil {
		return nil, err
	}
	dt := promote(a.DType(), b.DType())
	return tensor.FromRaw(backend.MatMul(castTo(a.Raw(), dt), castTo(b.Raw(), dt))), nil
}

func matmulMeta(owner any, args []any, _ map[string]any) (any, error) {
	a, err := tensorArg("matmul", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := tensorArg("matmul", args, 1)
	if err != nil {
		return nil, err
	}
	if a.Dim() != 2 || b.Dim() != 2 {
		return nil, errors.Errorf("matmul: expected 2D tensors, got %dD and %dD", a.Dim(), b.Dim())
	}
	as, bs := a.Sizes(), b.Sizes()
	if as[1].Hint() != bs[0].Hint() {
		return nil, errors.Errorf("matmul: incompatible shapes %v @ %v", a.TensorMeta(), b.TensorMeta())
	}
	if _, err := symbolic.Broadcast(as[1:], bs[:1]); err != nil {
		return nil, errors.Wrap(err, "matmul")
	}
	dt := promote(a.DType(), b.DType())
	return fake(owner, tensor.MetaFromSizes(dt, a.Device(), []symbolic.Int{as[0], bs[1]})), nil
}
