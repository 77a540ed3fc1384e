package catalog

import (
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Composite operators.
var (
	// Addmm computes bias + a @ b.
	Addmm = &Operator{Name: "addmm", Kernel: addmmKernel, Meta: addmmMeta}
	// Linear computes x @ w.T + bias. It only exists as a decomposition.
	Linear = &Operator{Name: "linear", Decomposition: linearDecomposition}
)

func (r *Registry) registerCompositeOps() {
	r.Register(Addmm)
	r.Register(Linear)
}

func addmmKernel(args []any, kwargs map[string]any) (any, error) {
	if _, err := tensorArg("addmm", args, 0); err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, errNeedArgs("addmm", 3, len(args))
	}
	mm, err := matmulKernel(args[1:3], kwargs)
	if err != nil {
		return nil, err
	}
	return Add.Kernel([]any{mm, args[0]}, nil)
}

func addmmMeta(owner any, args []any, kwargs map[string]any) (any, error) {
	if _, err := tensorArg("addmm", args, 0); err != nil {
		return nil, err
	}
	if len(args) < 3 {
		return nil, errNeedArgs("addmm", 3, len(args))
	}
	mm, err := matmulMeta(owner, args[1:3], kwargs)
	if err != nil {
		return nil, err
	}
	return Add.Meta(owner, []any{mm, args[0]}, nil)
}

func linearDecomposition(c Caller, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("linear", args, 0)
	if err != nil {
		return nil, err
	}
	w, err := tensorArg("linear", args, 1)
	if err != nil {
		return nil, err
	}
	bias, err := optionalTensorArg("linear", args, 2)
	if err != nil {
		return nil, err
	}

	wt, err := c.Call(T, []any{w}, nil)
	if err != nil {
		return nil, err
	}
	out, err := c.Call(MatMul, []any{x, wt}, nil)
	if err != nil || bias == nil {
		return out, err
	}
	return c.Call(Add, []any{out, bias}, nil)
}

// Table maps operators to replacement decompositions.
type Table map[*Operator]Decomposition

// CoreDecompositions returns decompositions rewriting composite operators
// into the primitive set: addmm into matmul and add, division by a scalar
// into multiplication.
func CoreDecompositions() Table {
	return Table{
		Addmm: decomposeAddmm,
		Div:   decomposeDivScalar,
	}
}

func decomposeAddmm(c Caller, args []any, _ map[string]any) (any, error) {
	if len(args) < 3 {
		return nil, errNeedArgs("addmm", 3, len(args))
	}
	mm, err := c.Call(MatMul, []any{args[1], args[2]}, nil)
	if err != nil {
		return nil, err
	}
	return c.Call(Add, []any{mm, args[0]}, nil)
}

func decomposeDivScalar(c Caller, args []any, _ map[string]any) (any, error) {
	if len(args) < 2 {
		return nil, ErrNotImplemented
	}
	x, ok := args[0].(*tensor.Tensor)
	if !ok || !x.DType().IsFloat() {
		return nil, ErrNotImplemented
	}
	switch s := args[1].(type) {
	case float64:
		if s == 0 {
			return nil, ErrNotImplemented
		}
		return c.Call(Mul, []any{x, 1 / s}, nil)
	default:
		return nil, ErrNotImplemented
	}
}
