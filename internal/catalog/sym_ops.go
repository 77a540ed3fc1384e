package catalog

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/symbolic"
)

// Symbolic scalar operators.
var (
	SymAdd      = symIntOperator("sym_add", symbolic.OpAdd)
	SymSub      = symIntOperator("sym_sub", symbolic.OpSub)
	SymMul      = symIntOperator("sym_mul", symbolic.OpMul)
	SymFloorDiv = symIntOperator("sym_floordiv", symbolic.OpFloorDiv)
	SymFloat    = symOperator("sym_float", func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, errNeedArgs("sym_float", 1, len(args))
		}
		return symbolic.ToFloat(args[0])
	})
	SymTrueDiv = symOperator("sym_truediv", func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, errNeedArgs("sym_truediv", 2, len(args))
		}
		return symbolic.TrueDiv(args[0], args[1])
	})
)

func (r *Registry) registerSymOps() {
	for _, op := range []*Operator{SymAdd, SymSub, SymMul, SymFloorDiv, SymFloat, SymTrueDiv} {
		r.Register(op)
	}
}

func symOperator(name string, f func(args []any) (any, error)) *Operator {
	k := func(args []any, _ map[string]any) (any, error) {
		out, err := f(args)
		return out, errors.Wrap(err, name)
	}
	return &Operator{Name: name, Tags: Symbolic, Kernel: k, Meta: ignoreOwner(k)}
}

func symIntOperator(name string, op symbolic.IntOp) *Operator {
	return symOperator(name, func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, errNeedArgs(name, 2, len(args))
		}
		return symbolic.ApplyInt(op, args[0], args[1])
	})
}

func errNeedArgs(name string, want, got int) error {
	return errors.Errorf("%s requires %d inputs, got %d", name, want, got)
}
